// Package suite runs YAML-described golden tests against templates.
//
//	templates: prompts        # optional, relative to the suite file
//	cases:
//	  - name: greeting
//	    file: greeting.pmd
//	    context: {name: Alice}
//	    expect: "Hello, Alice!\n"
//	    metadata: {task: greeting}
//	  - template: "{{a}}{{b}}"
//	    context: {a: x, b: y}
//	    expect: xy
package suite

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/neurodesk/pmd/pkg/pmd"
	"github.com/neurodesk/pmd/pkg/validator"
	"gopkg.in/yaml.v3"
)

type Suite struct {
	Name      string `yaml:"name"`
	Templates string `yaml:"templates"`
	// Expand resolves includes through the template directory instead of
	// rendering include placeholders.
	Expand bool   `yaml:"expand"`
	Cases  []Case `yaml:"cases"`

	// Path is the file the suite was loaded from.
	Path string `yaml:"-"`
}

type Case struct {
	Name     string             `yaml:"name"`
	Template pmd.TemplateString `yaml:"template"`
	File     string             `yaml:"file"`
	Context  map[string]any     `yaml:"context"`
	Expect   *string            `yaml:"expect"`
	Metadata map[string]string  `yaml:"metadata"`

	resolvedName string
}

var caseFields = map[string]bool{
	"name": true, "template": true, "file": true, "context": true, "expect": true, "metadata": true,
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

func (c *Case) UnmarshalYAML(value *yaml.Node) error {
	type alias Case
	var tmp alias
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			if k := value.Content[i]; !caseFields[k.Value] {
				return fmt.Errorf("line %d: field %s not found in case", k.Line, k.Value)
			}
		}
	}
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	hasInline := value.Kind == yaml.MappingNode && hasKey(value, "template")
	if hasInline == (tmp.File != "") {
		return fmt.Errorf("line %d: case needs exactly one of template or file", value.Line)
	}
	if tmp.Expect == nil && tmp.Metadata == nil {
		return fmt.Errorf("line %d: case has neither expect nor metadata", value.Line)
	}
	tmp.Name = strings.TrimSpace(tmp.Name)
	*c = Case(tmp)
	return nil
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// Validate checks the parts of a case that decoding cannot: the context must
// hold renderable values and file must stay inside the template directory.
func (c Case) Validate() error {
	if c.File != "" {
		clean := strings.TrimPrefix(path.Clean(filepath.ToSlash(c.File)), "./")
		if !fs.ValidPath(clean) || strings.Contains(clean, ":") {
			return fmt.Errorf("file %q must be relative to the template directory", c.File)
		}
	}
	if _, err := pmd.NewContextFromAny(c.Context); err != nil {
		return err
	}
	return nil
}

// Identifier is the unique name of the case within its suite.
func (c Case) Identifier() string {
	return c.resolvedName
}

func (c *Case) ensureResolvedName(index int, counter map[string]int) {
	base := c.Name
	if base == "" && c.File != "" {
		base = strings.TrimSuffix(filepath.Base(c.File), filepath.Ext(c.File))
	}
	if base == "" {
		base = fmt.Sprintf("case-%d", index+1)
	}
	base = strings.ToLower(base)
	base = invalidNameChars.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "case"
	}
	count := counter[base]
	if count > 0 {
		c.resolvedName = fmt.Sprintf("%s-%d", base, count+1)
	} else {
		c.resolvedName = base
	}
	counter[base] = count + 1
}

// Load reads and decodes a suite file. Unknown fields are rejected.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

func Decode(data []byte) (*Suite, error) {
	var s Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding suite: %w", err)
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("suite defines no cases")
	}
	if err := validator.Each(s.Cases); err != nil {
		return nil, fmt.Errorf("case: %w", err)
	}
	counter := map[string]int{}
	for i := range s.Cases {
		s.Cases[i].ensureResolvedName(i, counter)
	}
	return &s, nil
}

// Dir is the directory file cases and includes are resolved against.
func (s *Suite) Dir() string {
	base := "."
	if s.Path != "" {
		base = filepath.Dir(s.Path)
	}
	if s.Templates == "" {
		return base
	}
	if filepath.IsAbs(s.Templates) {
		return s.Templates
	}
	return filepath.Join(base, s.Templates)
}

// Filter returns the cases whose identifier or name matches one of the
// selectors, case insensitively. No selectors selects every case.
func (s *Suite) Filter(selectors []string) []Case {
	set := map[string]struct{}{}
	for _, sel := range selectors {
		if sel = strings.TrimSpace(sel); sel != "" {
			set[strings.ToLower(sel)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return s.Cases
	}
	var filtered []Case
	for _, c := range s.Cases {
		if _, ok := set[c.resolvedName]; ok {
			filtered = append(filtered, c)
			continue
		}
		if _, ok := set[strings.ToLower(c.Name)]; ok {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

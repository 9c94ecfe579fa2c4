package suite

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/k14s/difflib"
	"github.com/neurodesk/pmd/pkg/library"
	"github.com/neurodesk/pmd/pkg/pmd"
)

type Options struct {
	// Loader overrides the template directory of the suite for file cases
	// and expanded includes.
	Loader   library.Loader
	Renderer []pmd.RendererOption
	Logger   *slog.Logger
	// Selectors limits the run to matching cases, see Suite.Filter.
	Selectors []string
}

type Result struct {
	Case   string
	Output string
	// Diff is a line diff of expected against actual output, empty when
	// they match.
	Diff string
	// MetadataDiff lists metadata entries that differ from the expectation.
	MetadataDiff []string
	Err          error
}

func (r Result) Passed() bool {
	return r.Err == nil && r.Diff == "" && len(r.MetadataDiff) == 0
}

// Run renders every selected case of s and compares it with its
// expectation.
func Run(s *Suite, opts Options) []Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := opts.Loader
	if loader == nil {
		loader = library.DirLoader(s.Dir())
	}
	lib := &library.Library{Loader: loader, Logger: logger}

	cases := s.Filter(opts.Selectors)
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		r := runCase(lib, s.Expand, c, opts.Renderer)
		if r.Passed() {
			logger.Debug("case passed", "suite", s.Name, "case", r.Case)
		} else {
			logger.Debug("case failed", "suite", s.Name, "case", r.Case)
		}
		results = append(results, r)
	}
	return results
}

func runCase(lib *library.Library, expand bool, c Case, opts []pmd.RendererOption) Result {
	res := Result{Case: c.Identifier()}

	var doc *pmd.Document
	if c.File != "" {
		d, err := lib.Load(filepath.ToSlash(c.File))
		if err != nil {
			res.Err = fmt.Errorf("loading %s: %w", c.File, err)
			return res
		}
		doc = d
	} else {
		doc = c.Template.Document()
	}

	ctx, err := pmd.NewContextFromAny(c.Context)
	if err != nil {
		res.Err = err
		return res
	}

	nodes := doc.Nodes
	if expand {
		if nodes, err = lib.Expand(nodes); err != nil {
			res.Err = err
			return res
		}
	}
	res.Output = pmd.NewRenderer(ctx, opts...).Render(nodes)

	if c.Expect != nil && *c.Expect != res.Output {
		res.Diff = difflib.PPDiff(strings.Split(*c.Expect, "\n"), strings.Split(res.Output, "\n"))
		if res.Diff == "" {
			res.Diff = fmt.Sprintf("expected %q, got %q", *c.Expect, res.Output)
		}
	}
	if c.Metadata != nil {
		res.MetadataDiff = diffMetadata(c.Metadata, doc.Metadata)
	}
	return res
}

func diffMetadata(want map[string]string, got pmd.Metadata) []string {
	var out []string
	have := got.Map()
	for k, v := range want {
		g, ok := have[k]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("missing @%s (want %q)", k, v))
		case g != v:
			out = append(out, fmt.Sprintf("@%s = %q, want %q", k, g, v))
		}
	}
	for k, g := range have {
		if _, ok := want[k]; !ok {
			out = append(out, fmt.Sprintf("unexpected @%s = %q", k, g))
		}
	}
	sort.Strings(out)
	return out
}

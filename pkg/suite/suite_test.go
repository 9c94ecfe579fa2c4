package suite

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurodesk/pmd/pkg/library"
	"github.com/neurodesk/pmd/pkg/pmd"
)

func identifiers(cases []Case) []string {
	var out []string
	for _, c := range cases {
		out = append(out, c.Identifier())
	}
	return out
}

func TestLoad(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "basic.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "basic" || len(s.Cases) != 3 {
		t.Fatalf("unexpected suite %+v", s)
	}
	if diff := cmp.Diff([]string{"greeting", "case-2", "greeting-2"}, identifiers(s.Cases)); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
	if got, want := s.Dir(), filepath.Join("testdata", "prompts"); got != want {
		t.Fatalf("Dir() = %q, want %q", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"no cases":       "name: x\n",
		"both sources":   "cases:\n  - template: a\n    file: b\n    expect: a\n",
		"no source":      "cases:\n  - expect: a\n",
		"no check":       "cases:\n  - template: a\n",
		"unknown field":  "cases:\n  - template: a\n    expect: a\n    extra: 1\n",
		"map in context": "cases:\n  - template: a\n    expect: a\n    context: {user: {name: x}}\n",
		"escaping file":  "cases:\n  - file: ../x.pmd\n    expect: a\n",
		"absolute file":  "cases:\n  - file: /etc/x.pmd\n    expect: a\n",
		"url file":       "cases:\n  - file: https://host/x.pmd\n    expect: a\n",
		"nested escape":  "cases:\n  - file: sub/../../x.pmd\n    expect: a\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(src)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecodeEmptyInlineTemplate(t *testing.T) {
	s, err := Decode([]byte("cases:\n  - template: \"\"\n    expect: \"\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	res := Run(s, Options{Loader: library.MemoryLoader{}})
	if len(res) != 1 || !res[0].Passed() {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestRunPassing(t *testing.T) {
	for _, name := range []string{"basic.yaml", "expand.yaml"} {
		t.Run(name, func(t *testing.T) {
			s, err := Load(filepath.Join("testdata", name))
			if err != nil {
				t.Fatal(err)
			}
			for _, r := range Run(s, Options{}) {
				if !r.Passed() {
					t.Errorf("%s failed: err=%v diff=%s metadata=%v output=%q", r.Case, r.Err, r.Diff, r.MetadataDiff, r.Output)
				}
			}
		})
	}
}

func TestRunFailing(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "failing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	res := Run(s, Options{})
	if len(res) != 2 {
		t.Fatalf("want 2 results, got %d", len(res))
	}

	wrong := res[0]
	if wrong.Passed() || wrong.Err != nil {
		t.Fatalf("wrong: unexpected state %+v", wrong)
	}
	if wrong.Output != "Hello Eve\nbye" {
		t.Fatalf("wrong: output %q", wrong.Output)
	}
	if !strings.Contains(wrong.Diff, "Mallory") || !strings.Contains(wrong.Diff, "Eve") {
		t.Fatalf("wrong: diff does not show both sides:\n%s", wrong.Diff)
	}
	if diff := cmp.Diff([]string{`missing @task (want "none")`}, wrong.MetadataDiff); diff != "" {
		t.Fatalf("metadata diff mismatch (-want +got):\n%s", diff)
	}

	missing := res[1]
	if missing.Passed() || !library.IsNotFound(missing.Err) {
		t.Fatalf("missing: want not found error, got %v", missing.Err)
	}
}

func TestRunSelectorsAndOptions(t *testing.T) {
	s, err := Decode([]byte(`
cases:
  - name: flag
    template: "{{on}}"
    context: {on: true}
    expect: "yes"
  - name: other
    template: "x"
    expect: "y"
`))
	if err != nil {
		t.Fatal(err)
	}
	res := Run(s, Options{
		Selectors: []string{"FLAG"},
		Renderer:  []pmd.RendererOption{pmd.WithBoolFormat("yes", "no")},
	})
	if len(res) != 1 || res[0].Case != "flag" || !res[0].Passed() {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestRunWithLoader(t *testing.T) {
	s, err := Decode([]byte("expand: true\ncases:\n  - file: page\n    expect: \"<h>body\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	res := Run(s, Options{Loader: library.MemoryLoader{
		"page.pmd": "{% include \"h\" %}body",
		"h.pmd":    "<h>",
	}})
	if len(res) != 1 || !res[0].Passed() {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestDiffMetadata(t *testing.T) {
	md, _ := pmd.ExtractMetadata("@a: 1\n@b: 2\n")
	got := diffMetadata(map[string]string{"a": "1", "b": "3", "c": "4"}, md)
	want := []string{`@b = "2", want "3"`, `missing @c (want "4")`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	md, _ = pmd.ExtractMetadata("@a: 1\n@b: 2\n@d: 5\n")
	got = diffMetadata(map[string]string{"a": "1", "b": "2"}, md)
	if diff := cmp.Diff([]string{`unexpected @d = "5"`}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurodesk/pmd/pkg/common"
	"github.com/neurodesk/pmd/pkg/pmd"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  pmdConfig
		ok   bool
	}{
		{"empty", pmdConfig{}, true},
		{"full", pmdConfig{
			TemplateDirs:     []string{"a", "b"},
			RemoteBases:      []string{"https://example.com/prompts/"},
			RequiredMetadata: []string{"task"},
			MaxIncludeDepth:  4,
		}, true},
		{"empty dir", pmdConfig{TemplateDirs: []string{""}}, false},
		{"duplicate dir", pmdConfig{TemplateDirs: []string{"a", "a"}}, false},
		{"bad scheme", pmdConfig{RemoteBases: []string{"ftp://example.com"}}, false},
		{"negative depth", pmdConfig{MaxIncludeDepth: -1}, false},
		{"templated key", pmdConfig{RequiredMetadata: []string{"{{x}}"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"pmd.config.yaml": "template_dirs: [prompts]\nbool_format: {true: yes, false: no}\nmax_include_depth: 3\n",
		"bad.yaml":        "unknown_field: 1\n",
	})
	var cfg pmdConfig
	if err := cfg.loadConfig(filepath.Join(dir, "pmd.config.yaml")); err != nil {
		t.Fatal(err)
	}
	want := pmdConfig{
		TemplateDirs:    []string{"prompts"},
		BoolFormat:      &common.BoolFormat{True: "yes", False: "no"},
		MaxIncludeDepth: 3,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	var bad pmdConfig
	if err := bad.loadConfig(filepath.Join(dir, "bad.yaml")); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestBuildContext(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.yaml": "name: A\nlevel: low\n",
		"b.json": `{"name": "B"}`,
	})
	ctx, err := buildContext(
		[]string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.json")},
		[]string{"level=high"},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := pmd.Context{"name": pmd.StringValue("B"), "level": pmd.StringValue("high")}
	if diff := cmp.Diff(want, ctx); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTemplate(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.pmd":          "@task: demo\n{% include \"header.pmd\" %}{{who}} {{flag}}\n",
		"header.pmd":        "# ",
		"shared/footer.pmd": "bye",
	})
	cfg := pmdConfig{BoolFormat: &common.BoolFormat{True: "True", False: "False"}}
	tpl, err := resolveTemplate(cfg, filepath.Join(dir, "main.pmd"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := pmd.Context{"who": pmd.StringValue("Ann"), "flag": pmd.BoolValue(true)}

	got, err := renderTemplate(cfg, tpl, ctx, false, false)
	if err != nil || got != "[INCLUDE: header.pmd]Ann True\n" {
		t.Fatalf("placeholder render = %q, %v", got, err)
	}
	got, err = renderTemplate(cfg, tpl, ctx, true, false)
	if err != nil || got != "# Ann True\n" {
		t.Fatalf("expanded render = %q, %v", got, err)
	}

	_, err = renderTemplate(cfg, tpl, pmd.Context{}, false, true)
	if err == nil || !strings.Contains(err.Error(), "undefined variable who") {
		t.Fatalf("strict render error = %v", err)
	}

	cfg.TemplateDirs = []string{filepath.Join(dir, "shared")}
	byName, err := resolveTemplate(cfg, "footer")
	if err != nil || byName.src != "bye" {
		t.Fatalf("library lookup = %+v, %v", byName, err)
	}
}

func TestRenderTemplateStrictParse(t *testing.T) {
	tpl := template{name: "t.pmd", src: "{% if a %}open"}
	_, err := renderTemplate(pmdConfig{}, tpl, pmd.Context{"a": pmd.BoolValue(true)}, false, true)
	if err == nil || !strings.Contains(err.Error(), "line 1: {% if a %} is never closed") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLintTemplate(t *testing.T) {
	cfg := pmdConfig{RequiredMetadata: []string{"task", "owner"}}
	tpl := template{name: "t.pmd", src: "@task: x\n@version: soon\n@note: {{oops}}\n{% else %}\n{% include \"gone.pmd\" %}\n"}

	var buf bytes.Buffer
	n := reportFindings(&buf, "t.pmd", lintTemplate(cfg, tpl, true))
	want := strings.Join([]string{
		"t.pmd:4: else without an open if",
		"t.pmd: metadata is missing required keys: owner",
		"t.pmd: @note must not contain template directives",
		`t.pmd: @version: Malformed version: soon`,
		`t.pmd: including "gone.pmd": template not found: gone.pmd`,
	}, "\n") + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("lint output mismatch (-want +got):\n%s", diff)
	}
	if n != 5 {
		t.Fatalf("want 5 findings, got %d", n)
	}

	clean := template{name: "ok.pmd", src: "@task: x\n@owner: y\n@version: 1.2\nHi {{name}}"}
	if fs := lintTemplate(cfg, clean, false); len(fs) != 0 {
		t.Fatalf("unexpected findings %v", fs)
	}
}

func TestRenderCommandWritesFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"pmd.config.yaml": "bool_format: {true: on, false: off}\n",
		"greet.pmd":       "Hello, {{name}}! {{vip}}",
		"ctx.yaml":        "name: Zoe\nvip: false\n",
	})
	out := filepath.Join(dir, "out.txt")

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "pmd.config.yaml"),
		"render", filepath.Join(dir, "greet.pmd"),
		"--context", filepath.Join(dir, "ctx.yaml"),
		"--set", "vip=true",
		"-o", out,
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("render: %v\n%s", err, stderr.String())
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "Hello, Zoe! on" {
		t.Fatalf("output %q", b)
	}
}

func TestPrintResults(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"s.yaml": "cases:\n  - name: good\n    template: a\n    expect: a\n  - name: bad\n    template: a\n    expect: b\n",
	})
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "none.yaml"), "test", filepath.Join(dir, "s.yaml")})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("explicit missing config should fail, got %v", err)
	}

	buf.Reset()
	rootConfigPath = common.DefaultConfigFile
	rootCmd.PersistentFlags().Lookup("config").Changed = false
	rootCmd.SetArgs([]string{"test", filepath.Join(dir, "s.yaml")})
	err = rootCmd.Execute()
	if err == nil || err.Error() != "1 case(s) failed" {
		t.Fatalf("want one failure, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "ok   "+filepath.Join(dir, "s.yaml")+"/good") ||
		!strings.Contains(out, "FAIL "+filepath.Join(dir, "s.yaml")+"/bad") ||
		!strings.HasSuffix(out, "1/2 passed\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

package pmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name string
		src  string
		keys []string
		vals map[string]string
		body string
	}{
		{
			name: "none",
			src:  "Hello",
			vals: map[string]string{},
			body: "Hello",
		},
		{
			name: "header then blank line",
			src:  "@a: 1\n@b:2\n\nbody",
			keys: []string{"a", "b"},
			vals: map[string]string{"a": "1", "b": "2"},
			body: "\nbody",
		},
		{
			name: "header runs to body",
			src:  "@a: 1\nbody",
			keys: []string{"a"},
			vals: map[string]string{"a": "1"},
			body: "body",
		},
		{
			name: "value trimmed",
			src:  "@task:   padded value  \n",
			keys: []string{"task"},
			vals: map[string]string{"task": "padded value"},
			body: "",
		},
		{
			name: "key characters",
			src:  "@api.v2-key_x: ok\n",
			keys: []string{"api.v2-key_x"},
			vals: map[string]string{"api.v2-key_x": "ok"},
		},
		{
			name: "empty value",
			src:  "@empty:\nx",
			keys: []string{"empty"},
			vals: map[string]string{"empty": ""},
			body: "x",
		},
		{
			name: "value with colon",
			src:  "@url: http://example.com\n",
			keys: []string{"url"},
			vals: map[string]string{"url": "http://example.com"},
		},
		{
			name: "repeated key keeps position",
			src:  "@a: 1\n@b: 2\n@a: 3\n",
			keys: []string{"a", "b"},
			vals: map[string]string{"a": "3", "b": "2"},
		},
		{
			name: "leading whitespace is body",
			src:  " @a: 1\n",
			vals: map[string]string{},
			body: " @a: 1\n",
		},
		{
			name: "space in key",
			src:  "@a b: 1\n",
			vals: map[string]string{},
			body: "@a b: 1\n",
		},
		{
			name: "no key",
			src:  "@: 1\n",
			vals: map[string]string{},
			body: "@: 1\n",
		},
		{
			name: "later metadata lines are body",
			src:  "text\n@a: 1\n",
			vals: map[string]string{},
			body: "text\n@a: 1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, off := ExtractMetadata(tt.src)
			if diff := cmp.Diff(tt.vals, md.Map()); diff != "" {
				t.Errorf("metadata mismatch (-want +got):\n%s", diff)
			}
			if tt.keys != nil {
				if diff := cmp.Diff(tt.keys, md.Keys()); diff != "" {
					t.Errorf("key order mismatch (-want +got):\n%s", diff)
				}
			}
			if got := tt.src[off:]; got != tt.body {
				t.Errorf("body: want %q, got %q", tt.body, got)
			}
		})
	}
}

func TestMetadataYAMLKeepsOrder(t *testing.T) {
	var md Metadata
	md.set("zeta", "1")
	md.set("alpha", "two words")
	md.set("mid", "3")

	out, err := yaml.Marshal(md)
	if err != nil {
		t.Fatal(err)
	}
	if want := "zeta: \"1\"\nalpha: two words\nmid: \"3\"\n"; string(out) != want {
		t.Fatalf("want:\n%s\ngot:\n%s", want, out)
	}

	var back Metadata
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(md.Keys(), back.Keys()); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(md.Map(), back.Map()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadataZeroValue(t *testing.T) {
	var md Metadata
	if _, ok := md.Get("x"); ok {
		t.Fatal("zero metadata reported a key")
	}
	if md.Len() != 0 || len(md.Keys()) != 0 {
		t.Fatal("zero metadata not empty")
	}
}

func TestParsedMetadataIsIsolated(t *testing.T) {
	doc := Parse("@a: 1\n@b: 2\nbody")
	md := doc.Metadata

	keys := md.Keys()
	keys[0] = "changed"
	m := md.Map()
	m["a"] = "changed"
	m["c"] = "3"

	if err := yaml.Unmarshal([]byte("a: changed\nx: y\n"), &md); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "x"}, md.Keys()); diff != "" {
		t.Fatalf("decoded keys mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"a", "b"}, doc.Metadata.Keys()); diff != "" {
		t.Fatalf("keys changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"a": "1", "b": "2"}, doc.Metadata.Map()); diff != "" {
		t.Fatalf("values changed (-want +got):\n%s", diff)
	}
	if v, _ := doc.Metadata.Get("a"); v != "1" || doc.Metadata.Len() != 2 {
		t.Fatalf("metadata changed: a=%q len=%d", v, doc.Metadata.Len())
	}
}

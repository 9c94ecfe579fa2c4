package pmd

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIncludes(t *testing.T) {
	doc := Parse(`{% include "a" %}{% if x %}{% include "b" %}{% else %}{% for i in xs %}{% include "a" %}{% endfor %}{% endif %}`)
	if diff := cmp.Diff([]string{"a", "b", "a"}, Includes(doc.Nodes)); diff != "" {
		t.Fatalf("includes mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkStops(t *testing.T) {
	doc := Parse("a{{b}}{% if c %}d{% endif %}")
	stop := errors.New("stop")
	var seen int
	err := walkAll(VisitorFunc(func(n Node) error {
		seen++
		if _, ok := n.(*IfNode); ok {
			return stop
		}
		return nil
	}), doc.Nodes)
	if !errors.Is(err, stop) {
		t.Fatalf("want stop error, got %v", err)
	}
	if seen != 3 {
		t.Fatalf("want 3 visits, got %d", seen)
	}
}

func TestPretty(t *testing.T) {
	doc := Parse("@task: demo\nHi {{name}}\n{% if a %}\nyes\n{% else %}\nno\n{% endif %}\n{% for x in xs %}{% include \"f.pmd\" %}{% endfor %}")
	want := `Document
  @task = "demo"
  Text("Hi ")
  Variable(name)
  Text("\n")
  If(a)
    Text("yes\n")
  Else
    Text("no\n")
  For(x in xs)
    Include("f.pmd")
`
	if diff := cmp.Diff(want, Pretty(doc)); diff != "" {
		t.Fatalf("pretty mismatch (-want +got):\n%s", diff)
	}
}

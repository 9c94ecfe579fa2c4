// Package library resolves {% include %} references by loading templates by
// name and splicing their bodies into the including tree.
package library

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/neurodesk/pmd/pkg/common"
	"github.com/neurodesk/pmd/pkg/pmd"
)

type ErrIncludeCycle struct{ Chain []string }

func (e ErrIncludeCycle) Error() string {
	return "include cycle: " + strings.Join(e.Chain, " -> ")
}

type ErrIncludeDepth struct {
	Name string
	Max  int
}

func (e ErrIncludeDepth) Error() string {
	return fmt.Sprintf("including %q exceeds the maximum include depth of %d", e.Name, e.Max)
}

// Library loads and expands templates.
type Library struct {
	Loader Loader
	// MaxDepth bounds nested includes; zero means common.DefaultMaxIncludeDepth.
	MaxDepth int
	Logger   *slog.Logger
}

func New(loader Loader) *Library {
	return &Library{Loader: loader}
}

func (l *Library) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Library) maxDepth() int {
	if l.MaxDepth > 0 {
		return l.MaxDepth
	}
	return common.DefaultMaxIncludeDepth
}

// Load loads and parses the named template.
func (l *Library) Load(name string) (*pmd.Document, error) {
	src, err := l.Loader.Load(name)
	if err != nil {
		return nil, err
	}
	l.logger().Debug("loaded template", "name", name, "bytes", len(src))
	return pmd.Parse(src), nil
}

// Expand returns a copy of nodes with every include replaced by the body of
// the included template, recursively. Metadata of included templates is
// dropped. nodes itself is left untouched.
func (l *Library) Expand(nodes []pmd.Node) ([]pmd.Node, error) {
	e := &expander{lib: l, docs: map[string]*pmd.Document{}}
	return e.expand(nodes, nil)
}

// Render loads name, expands its includes and renders it against ctx.
func (l *Library) Render(name string, ctx pmd.Context, opts ...pmd.RendererOption) (pmd.Metadata, string, error) {
	doc, err := l.Load(name)
	if err != nil {
		return pmd.Metadata{}, "", err
	}
	nodes, err := l.ExpandFrom(name, doc.Nodes)
	if err != nil {
		return doc.Metadata, "", fmt.Errorf("expanding %q: %w", name, err)
	}
	return doc.Metadata, pmd.NewRenderer(ctx, opts...).Render(nodes), nil
}

// ExpandFrom is Expand for the body of the named template, so that a
// template including itself is reported as a cycle.
func (l *Library) ExpandFrom(name string, nodes []pmd.Node) ([]pmd.Node, error) {
	e := &expander{lib: l, docs: map[string]*pmd.Document{}, root: 1}
	return e.expand(nodes, []string{name})
}

type expander struct {
	lib  *Library
	docs map[string]*pmd.Document
	root int // entries of chain that are not includes
}

func (e *expander) load(name string) (*pmd.Document, error) {
	if doc, ok := e.docs[name]; ok {
		return doc, nil
	}
	doc, err := e.lib.Load(name)
	if err != nil {
		return nil, err
	}
	e.docs[name] = doc
	return doc, nil
}

func (e *expander) expand(nodes []pmd.Node, chain []string) ([]pmd.Node, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]pmd.Node, 0, len(nodes))
	for _, n := range nodes {
		switch t := n.(type) {
		case *pmd.TextNode:
			out = append(out, &pmd.TextNode{Content: t.Content})
		case *pmd.VariableNode:
			out = append(out, &pmd.VariableNode{Name: t.Name})
		case *pmd.IfNode:
			tb, err := e.expand(t.TrueBlock, chain)
			if err != nil {
				return nil, err
			}
			fb, err := e.expand(t.FalseBlock, chain)
			if err != nil {
				return nil, err
			}
			out = append(out, &pmd.IfNode{Condition: t.Condition, TrueBlock: tb, FalseBlock: fb})
		case *pmd.ForNode:
			b, err := e.expand(t.Block, chain)
			if err != nil {
				return nil, err
			}
			out = append(out, &pmd.ForNode{Iterator: t.Iterator, Iterable: t.Iterable, Block: b})
		case *pmd.IncludeNode:
			body, err := e.include(t.TemplateName, chain)
			if err != nil {
				return nil, err
			}
			out = append(out, body...)
		}
	}
	return out, nil
}

func (e *expander) include(name string, chain []string) ([]pmd.Node, error) {
	for i, c := range chain {
		if c == name {
			cycle := append(append([]string{}, chain[i:]...), name)
			return nil, ErrIncludeCycle{Chain: cycle}
		}
	}
	if len(chain)-e.root >= e.lib.maxDepth() {
		return nil, ErrIncludeDepth{Name: name, Max: e.lib.maxDepth()}
	}
	doc, err := e.load(name)
	if err != nil {
		return nil, fmt.Errorf("including %q: %w", name, err)
	}
	next := append(append(make([]string, 0, len(chain)+1), chain...), name)
	return e.expand(doc.Nodes, next)
}

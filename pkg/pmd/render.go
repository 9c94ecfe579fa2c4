package pmd

import (
	"strings"
)

// Default text of boolean variables.
const (
	DefaultTrueText  = "true"
	DefaultFalseText = "false"
)

// Renderer evaluates a node sequence against a context. Render never mutates
// the nodes or the context and keeps all traversal state call-local, so one
// Renderer may be reused and shared.
type Renderer struct {
	ctx       Context
	trueText  string
	falseText string
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithBoolFormat sets the text a boolean variable renders as.
func WithBoolFormat(trueText, falseText string) RendererOption {
	return func(r *Renderer) {
		r.trueText = trueText
		r.falseText = falseText
	}
}

// NewRenderer returns a Renderer for ctx.
func NewRenderer(ctx Context, opts ...RendererOption) *Renderer {
	r := &Renderer{ctx: ctx, trueText: DefaultTrueText, falseText: DefaultFalseText}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders nodes. Missing variables render as the empty string and a
// loop over a missing or non-list value performs no iterations.
func (r *Renderer) Render(nodes []Node) string {
	var buf strings.Builder
	r.renderNodes(&buf, nodes, &scope{vars: r.ctx}, nil)
	return buf.String()
}

// RenderDiagnostics renders like Render and reports the names that fell back
// to the lenient defaults.
func (r *Renderer) RenderDiagnostics(nodes []Node) (string, []Diagnostic) {
	var buf strings.Builder
	var diags []Diagnostic
	r.renderNodes(&buf, nodes, &scope{vars: r.ctx}, &diags)
	return buf.String(), diags
}

func (r *Renderer) renderNodes(buf *strings.Builder, nodes []Node, sc *scope, diags *[]Diagnostic) {
	for _, n := range nodes {
		switch t := n.(type) {
		case *TextNode:
			buf.WriteString(t.Content)
		case *VariableNode:
			v, ok := sc.lookup(t.Name)
			if !ok {
				report(diags, "undefined variable "+t.Name)
				continue
			}
			buf.WriteString(r.text(v))
		case *IfNode:
			if v, ok := sc.lookup(t.Condition); ok && v.Truth() {
				r.renderNodes(buf, t.TrueBlock, sc, diags)
			} else if t.FalseBlock != nil {
				r.renderNodes(buf, t.FalseBlock, sc, diags)
			}
		case *ForNode:
			v, ok := sc.lookup(t.Iterable)
			if !ok {
				report(diags, "undefined iterable "+t.Iterable)
				continue
			}
			items, ok := v.(ListValue)
			if !ok {
				report(diags, t.Iterable+" is not a list")
				continue
			}
			for _, item := range items {
				r.renderNodes(buf, t.Block, &scope{parent: sc, name: t.Iterator, val: item}, diags)
			}
		case *IncludeNode:
			buf.WriteString("[INCLUDE: ")
			buf.WriteString(t.TemplateName)
			buf.WriteString("]")
		}
	}
}

func (r *Renderer) text(v Value) string {
	switch t := v.(type) {
	case BoolValue:
		if t {
			return r.trueText
		}
		return r.falseText
	case ListValue:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				parts = append(parts, r.text(item))
			}
		}
		return strings.Join(parts, ", ")
	}
	return v.String()
}

func report(diags *[]Diagnostic, msg string) {
	if diags != nil {
		*diags = append(*diags, Diagnostic{Message: msg})
	}
}

// scope is a chain of bindings. The root holds the caller's context; every
// loop iteration pushes a child binding its iterator for that iteration only.
type scope struct {
	parent *scope
	vars   Context
	name   string
	val    Value
}

func (s *scope) lookup(name string) (Value, bool) {
	for ; s != nil; s = s.parent {
		if s.parent == nil {
			v, ok := s.vars[name]
			return v, ok && v != nil
		}
		if s.name == name {
			return s.val, s.val != nil
		}
	}
	return nil, false
}

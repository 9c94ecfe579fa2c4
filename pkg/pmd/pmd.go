// Package pmd implements the PMD prompt templating language: literal text
// with {{ variable }} placeholders, {% if %} / {% for %} blocks, {% include %}
// references, {# comments #} and a leading "@key: value" metadata header.
//
// Parsing and rendering are total: malformed directives degrade to literal
// text, unbalanced blocks are closed at end of input, and missing context
// entries render as nothing. The *Diagnostics variants report those
// recoveries for callers that want to be strict.
package pmd

import (
	"errors"
	"fmt"
)

// Diagnostic describes a lenient recovery made while parsing or rendering.
// Offset and Line are zero for render diagnostics.
type Diagnostic struct {
	Offset  int
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// Render parses src and renders its body against ctx.
func Render(src string, ctx Context, opts ...RendererOption) (Metadata, string) {
	doc := Parse(src)
	return doc.Metadata, NewRenderer(ctx, opts...).Render(doc.Nodes)
}

// TemplateString is template source carried in configuration or suites.
type TemplateString string

// Document parses the template.
func (t TemplateString) Document() *Document {
	return Parse(string(t))
}

// Render parses the template and renders its body against ctx.
func (t TemplateString) Render(ctx Context, opts ...RendererOption) string {
	_, out := Render(string(t), ctx, opts...)
	return out
}

// Validate reports every parse diagnostic of the template as one error.
func (t TemplateString) Validate() error {
	_, _, diags := NewParser().ParseDiagnostics(string(t))
	if len(diags) == 0 {
		return nil
	}
	errs := make([]error, len(diags))
	for i, d := range diags {
		errs[i] = errors.New(d.String())
	}
	return fmt.Errorf("invalid pmd template: %w", errors.Join(errs...))
}

package pmd

import (
	"bytes"
	"fmt"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk calls v.Visit for n and then for every node nested in it, depth
// first. The first error stops the walk.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	switch t := n.(type) {
	case *IfNode:
		if err := walkAll(v, t.TrueBlock); err != nil {
			return err
		}
		return walkAll(v, t.FalseBlock)
	case *ForNode:
		return walkAll(v, t.Block)
	}
	return nil
}

func walkAll(v Visitor, nodes []Node) error {
	for _, c := range nodes {
		if err := Walk(v, c); err != nil {
			return err
		}
	}
	return nil
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Includes returns the template names referenced by include directives in
// source order, duplicates kept.
func Includes(nodes []Node) []string {
	var names []string
	_ = walkAll(VisitorFunc(func(n Node) error {
		if in, ok := n.(*IncludeNode); ok {
			names = append(names, in.TemplateName)
		}
		return nil
	}), nodes)
	return names
}

// Pretty returns a line-oriented string representation of the document.
func Pretty(doc *Document) string {
	var buf bytes.Buffer
	buf.WriteString("Document\n")
	for _, k := range doc.Metadata.Keys() {
		v, _ := doc.Metadata.Get(k)
		fmt.Fprintf(&buf, "  @%s = %q\n", k, v)
	}
	for _, n := range doc.Nodes {
		ppNode(&buf, 2, n)
	}
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() {
		for i := 0; i < indent; i++ {
			buf.WriteByte(' ')
		}
	}
	switch t := n.(type) {
	case *TextNode:
		ind()
		fmt.Fprintf(buf, "Text(%q)\n", t.Content)
	case *VariableNode:
		ind()
		fmt.Fprintf(buf, "Variable(%s)\n", t.Name)
	case *IfNode:
		ind()
		fmt.Fprintf(buf, "If(%s)\n", t.Condition)
		for _, c := range t.TrueBlock {
			ppNode(buf, indent+2, c)
		}
		if t.FalseBlock != nil {
			ind()
			buf.WriteString("Else\n")
			for _, c := range t.FalseBlock {
				ppNode(buf, indent+2, c)
			}
		}
	case *ForNode:
		ind()
		fmt.Fprintf(buf, "For(%s in %s)\n", t.Iterator, t.Iterable)
		for _, c := range t.Block {
			ppNode(buf, indent+2, c)
		}
	case *IncludeNode:
		ind()
		fmt.Fprintf(buf, "Include(%q)\n", t.TemplateName)
	}
}

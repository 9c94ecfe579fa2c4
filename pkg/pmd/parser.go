package pmd

import (
	"fmt"
	"sort"
	"strings"
)

// Parser turns template source into metadata and an AST. It keeps no state
// between calls, so the zero value is ready to use and a single Parser may
// serve concurrent callers.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses src. It never fails: unknown syntax is kept as literal text
// and unbalanced blocks are closed at the end of input.
func (p *Parser) Parse(src string) (Metadata, []Node) {
	md, nodes, _ := p.parse(src, false)
	return md, nodes
}

// ParseDiagnostics parses src like Parse and also reports the lenient
// recoveries it made along the way.
func (p *Parser) ParseDiagnostics(src string) (Metadata, []Node, []Diagnostic) {
	return p.parse(src, true)
}

func (p *Parser) parse(src string, strict bool) (Metadata, []Node, []Diagnostic) {
	md, body := ExtractMetadata(src)
	s := &parseState{src: src, strict: strict}
	var report func(int, string)
	if strict {
		report = s.warn
	}
	for _, tok := range newLexer(src, body, report).tokens() {
		s.consume(tok)
	}
	s.finish()
	return md, s.root, s.diags
}

// Parse parses src into a Document using a fresh Parser.
func Parse(src string) *Document {
	md, nodes := NewParser().Parse(src)
	return &Document{Metadata: md, Nodes: nodes}
}

// frame is an open if or for block on the parser stack.
type frame struct {
	pos     int
	ifNode  *IfNode
	forNode *ForNode
	inElse  bool
}

func (f *frame) kind() tokenKind {
	if f.forNode != nil {
		return tokFor
	}
	return tokIf
}

func (f *frame) node() Node {
	if f.forNode != nil {
		return f.forNode
	}
	return f.ifNode
}

func (f *frame) describe() string {
	if f.forNode != nil {
		return fmt.Sprintf("{%% for %s in %s %%}", f.forNode.Iterator, f.forNode.Iterable)
	}
	return fmt.Sprintf("{%% if %s %%}", f.ifNode.Condition)
}

// parseState is the call-local state of one parse: the open-block stack, the
// pending literal text and the diagnostics collected so far.
type parseState struct {
	src     string
	root    []Node
	stack   []*frame
	pending strings.Builder
	diags   []Diagnostic
	lines   []int
	strict  bool
}

func (s *parseState) consume(tok token) {
	switch tok.kind {
	case tokText:
		s.pending.WriteString(tok.val)
	case tokVariable:
		s.emit(&VariableNode{Name: tok.val})
	case tokInclude:
		s.emit(&IncludeNode{TemplateName: tok.val})
	case tokIf:
		s.flush()
		s.stack = append(s.stack, &frame{pos: tok.pos, ifNode: &IfNode{Condition: tok.val}})
	case tokFor:
		s.flush()
		s.stack = append(s.stack, &frame{pos: tok.pos, forNode: &ForNode{Iterator: tok.val, Iterable: tok.arg}})
	case tokElse:
		top := s.top()
		if top == nil || top.ifNode == nil || top.inElse {
			s.warn(tok.pos, "else without an open if")
			return
		}
		s.flush()
		top.inElse = true
		top.ifNode.FalseBlock = []Node{}
	case tokEndif, tokEndfor:
		want := tokIf
		if tok.kind == tokEndfor {
			want = tokFor
		}
		idx := s.innermost(want)
		if idx < 0 {
			s.warn(tok.pos, fmt.Sprintf("%s without an open %s", tok.kind, want))
			return
		}
		for len(s.stack)-1 > idx {
			top := s.top()
			s.warn(top.pos, fmt.Sprintf("%s closed by %s", top.describe(), tok.kind))
			s.closeTop()
		}
		s.closeTop()
	}
}

// finish folds every block still open at end of input into its parent.
func (s *parseState) finish() {
	for len(s.stack) > 0 {
		top := s.top()
		s.warn(top.pos, top.describe()+" is never closed")
		s.closeTop()
	}
	s.flush()
}

func (s *parseState) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *parseState) innermost(kind tokenKind) int {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].kind() == kind {
			return i
		}
	}
	return -1
}

// block returns the node list currently accumulating.
func (s *parseState) block() *[]Node {
	f := s.top()
	switch {
	case f == nil:
		return &s.root
	case f.forNode != nil:
		return &f.forNode.Block
	case f.inElse:
		return &f.ifNode.FalseBlock
	default:
		return &f.ifNode.TrueBlock
	}
}

func (s *parseState) flush() {
	if s.pending.Len() == 0 {
		return
	}
	b := s.block()
	*b = append(*b, &TextNode{Content: s.pending.String()})
	s.pending.Reset()
}

func (s *parseState) emit(n Node) {
	s.flush()
	b := s.block()
	*b = append(*b, n)
}

func (s *parseState) closeTop() {
	s.flush()
	f := s.top()
	s.stack = s.stack[:len(s.stack)-1]
	s.emit(f.node())
}

func (s *parseState) warn(pos int, msg string) {
	if !s.strict {
		return
	}
	s.diags = append(s.diags, Diagnostic{Offset: pos, Line: s.lineOf(pos), Message: msg})
}

func (s *parseState) lineOf(pos int) int {
	if s.lines == nil {
		s.lines = []int{}
		for i := 0; i < len(s.src); i++ {
			if s.src[i] == '\n' {
				s.lines = append(s.lines, i)
			}
		}
	}
	return sort.SearchInts(s.lines, pos) + 1
}

package pmd

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// The lexer scans a template body and yields logical tokens: literal text,
// variables {{ }}, control tags {% %} and includes. Comments {# #} are
// recognized and dropped. Control tags and comments that occupy a line on
// their own take the whole line, terminator included, with them.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokVariable // {{ name }}
	tokIf       // {% if cond %}
	tokElse     // {% else %}
	tokEndif    // {% endif %}
	tokFor      // {% for x in xs %}
	tokEndfor   // {% endfor %}
	tokInclude  // {% include "name" %}
	tokComment  // {# ... #}, never leaves the lexer
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "EOF"
	case tokText:
		return "text"
	case tokVariable:
		return "variable"
	case tokIf:
		return "if"
	case tokElse:
		return "else"
	case tokEndif:
		return "endif"
	case tokFor:
		return "for"
	case tokEndfor:
		return "endfor"
	case tokInclude:
		return "include"
	case tokComment:
		return "comment"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	val  string // text, variable name, condition, iterator or include name
	arg  string // iterable of a for tag
	pos  int    // byte offset in source
}

// directive is a recognized construct together with the byte range it
// removes from the body. The cut range grows past [start, end) when the
// directive is elided with its line.
type directive struct {
	tok        token
	start, end int
	cutStart   int
	cutEnd     int
}

func (d directive) elidable() bool {
	switch d.tok.kind {
	case tokIf, tokElse, tokEndif, tokFor, tokEndfor, tokComment:
		return true
	}
	return false
}

type lexer struct {
	src    string
	base   int // offset of the body within src
	i      int
	n      int
	report func(pos int, msg string)
}

func newLexer(src string, base int, report func(pos int, msg string)) *lexer {
	return &lexer{src: src, base: base, i: base, n: len(src), report: report}
}

func (l *lexer) warn(pos int, msg string) {
	if l.report != nil {
		l.report(pos, msg)
	}
}

func (l *lexer) peek() byte {
	if l.i >= l.n {
		return 0
	}
	return l.src[l.i]
}

func (l *lexer) match(s string) bool {
	if !strings.HasPrefix(l.src[l.i:], s) {
		return false
	}
	l.i += len(s)
	return true
}

func (l *lexer) skipSpace() int {
	start := l.i
	for l.i < l.n {
		r, size := utf8.DecodeRuneInString(l.src[l.i:])
		if !unicode.IsSpace(r) {
			break
		}
		l.i += size
	}
	return l.i - start
}

// ident reads an identifier at the cursor; it returns "" when there is none.
func (l *lexer) ident() string {
	start := l.i
	for l.i < l.n {
		r, size := utf8.DecodeRuneInString(l.src[l.i:])
		if r == '_' || unicode.IsLetter(r) || (l.i > start && unicode.IsDigit(r)) {
			l.i += size
			continue
		}
		break
	}
	return l.src[start:l.i]
}

// quoted reads a "..." or '...' string at the cursor.
func (l *lexer) quoted() (string, bool) {
	q := l.peek()
	if q != '"' && q != '\'' {
		return "", false
	}
	end := strings.IndexByte(l.src[l.i+1:], q)
	if end < 0 {
		return "", false
	}
	s := l.src[l.i+1 : l.i+1+end]
	if strings.ContainsAny(s, "\n") {
		return "", false
	}
	l.i += end + 2
	return s, true
}

// tokens returns the logical token stream of the body, elision applied.
func (l *lexer) tokens() []token {
	ds := l.scan()
	l.elide(ds)

	var out []token
	prev := l.base
	for _, d := range ds {
		if d.cutStart > prev {
			out = append(out, token{kind: tokText, val: l.src[prev:d.cutStart], pos: prev})
		}
		if d.tok.kind != tokComment {
			out = append(out, d.tok)
		}
		if d.cutEnd > prev {
			prev = d.cutEnd
		}
	}
	if prev < l.n {
		out = append(out, token{kind: tokText, val: l.src[prev:], pos: prev})
	}
	return out
}

// scan finds every directive in the body in source order.
func (l *lexer) scan() []directive {
	var out []directive
	for l.i < l.n {
		j := strings.IndexByte(l.src[l.i:], '{')
		if j < 0 {
			break
		}
		start := l.i + j
		l.i = start
		tok, ok := l.directiveAt(start)
		if !ok {
			l.i = start + 1
			continue
		}
		tok.pos = start
		out = append(out, directive{tok: tok, start: start, end: l.i, cutStart: start, cutEnd: l.i})
	}
	return out
}

// directiveAt tries to recognize a directive at src[start] == '{'. On
// success the cursor is left after the directive.
func (l *lexer) directiveAt(start int) (token, bool) {
	if start+1 >= l.n {
		return token{}, false
	}
	switch l.src[start+1] {
	case '#':
		end := strings.Index(l.src[start+2:], "#}")
		if end < 0 {
			l.warn(start, "unterminated comment")
			l.i = l.n
		} else {
			l.i = start + 2 + end + 2
		}
		return token{kind: tokComment}, true
	case '{':
		l.i = start + 2
		if tok, ok := l.variable(); ok {
			return tok, true
		}
		if l.report != nil {
			if snippet, ok := l.snippet(start, "}}"); ok {
				l.warn(start, "malformed variable "+snippet)
			}
		}
	case '%':
		l.i = start + 2
		if tok, ok := l.tag(); ok {
			return tok, true
		}
		if l.report != nil {
			if snippet, ok := l.snippet(start, "%}"); ok {
				l.warn(start, "unrecognized tag "+snippet)
			}
		}
	}
	return token{}, false
}

func (l *lexer) variable() (token, bool) {
	l.skipSpace()
	name := l.ident()
	if name == "" {
		return token{}, false
	}
	l.skipSpace()
	if !l.match("}}") {
		return token{}, false
	}
	return token{kind: tokVariable, val: name}, true
}

func (l *lexer) tag() (token, bool) {
	l.skipSpace()
	var tok token
	switch kw := l.ident(); kw {
	case "if":
		if l.skipSpace() == 0 {
			return token{}, false
		}
		tok = token{kind: tokIf, val: l.ident()}
		if tok.val == "" {
			return token{}, false
		}
	case "else":
		tok = token{kind: tokElse}
	case "endif":
		tok = token{kind: tokEndif}
	case "endfor":
		tok = token{kind: tokEndfor}
	case "for":
		if l.skipSpace() == 0 {
			return token{}, false
		}
		iter := l.ident()
		if iter == "" || l.skipSpace() == 0 || l.ident() != "in" || l.skipSpace() == 0 {
			return token{}, false
		}
		iterable := l.ident()
		if iterable == "" {
			return token{}, false
		}
		tok = token{kind: tokFor, val: iter, arg: iterable}
	case "include":
		l.skipSpace()
		name, ok := l.quoted()
		if !ok || name == "" {
			return token{}, false
		}
		tok = token{kind: tokInclude, val: name}
	default:
		return token{}, false
	}
	l.skipSpace()
	if !l.match("%}") {
		return token{}, false
	}
	return tok, true
}

// snippet returns the source from start through the first closing delimiter
// on the same line, for diagnostics.
func (l *lexer) snippet(start int, closing string) (string, bool) {
	line := l.src[start:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	end := strings.Index(line, closing)
	if end < 0 {
		return "", false
	}
	return line[:end+len(closing)], true
}

// elide widens the cut range of every run of elidable directives that is the
// only non-whitespace content of its line, so that the run removes the whole
// line including the terminator. Directives in a run are separated by
// horizontal whitespace only.
func (l *lexer) elide(ds []directive) {
	for i := 0; i < len(ds); {
		if !ds[i].elidable() {
			i++
			continue
		}
		j := i
		for j+1 < len(ds) && ds[j+1].elidable() && isHorizontalSpace(l.src[ds[j].end:ds[j+1].start]) {
			j++
		}

		lineStart := l.base
		if nl := strings.LastIndexByte(l.src[l.base:ds[i].start], '\n'); nl >= 0 {
			lineStart = l.base + nl + 1
		}
		lineEnd, next := l.n, l.n
		if nl := strings.IndexByte(l.src[ds[j].end:], '\n'); nl >= 0 {
			lineEnd = ds[j].end + nl
			next = lineEnd + 1
		}
		prevEnd := l.base
		if i > 0 {
			prevEnd = ds[i-1].end
		}

		if prevEnd <= lineStart &&
			isHorizontalSpace(l.src[lineStart:ds[i].start]) &&
			isHorizontalSpace(l.src[ds[j].end:lineEnd]) {
			ds[i].cutStart = lineStart
			for k := i + 1; k <= j; k++ {
				ds[k].cutStart = ds[k-1].end
			}
			ds[j].cutEnd = next
		}
		i = j + 1
	}
}

// isHorizontalSpace reports whether s holds only whitespace other than '\n'.
func isHorizontalSpace(s string) bool {
	for _, r := range s {
		if r == '\n' || !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

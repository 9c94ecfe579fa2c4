package pmd

// Node is any AST node in a parsed PMD template. The set of node types is
// closed: TextNode, VariableNode, IfNode, ForNode and IncludeNode.
type Node interface {
	node()
}

// Document bundles the result of a single parse.
type Document struct {
	Metadata Metadata
	Nodes    []Node
}

// TextNode represents literal text between directives.
type TextNode struct {
	Content string
}

func (*TextNode) node() {}

// VariableNode represents a placeholder: {{ name }}
type VariableNode struct {
	Name string
}

func (*VariableNode) node() {}

// IfNode represents {% if cond %}...{% else %}...{% endif %}.
type IfNode struct {
	Condition string
	TrueBlock []Node
	// FalseBlock is nil when the source has no else branch.
	FalseBlock []Node
}

func (*IfNode) node() {}

// ForNode represents {% for iterator in iterable %}...{% endfor %}.
type ForNode struct {
	Iterator string
	Iterable string
	Block    []Node
}

func (*ForNode) node() {}

// IncludeNode references another template by name. The core engine never
// resolves it; see package library for loading.
type IncludeNode struct {
	TemplateName string
}

func (*IncludeNode) node() {}

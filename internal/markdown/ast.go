// Package markdown provides a typed, round-trippable representation of
// issue bodies: a small AST plus extractors and mutators for the sections
// the dispatcher reads and writes (todos, iteration history, questions,
// agent notes, affected areas).
package markdown

// Kind discriminates the node types in the body AST.
type Kind int

const (
	KindRoot Kind = iota
	KindHeading
	KindParagraph
	KindList
	KindListItem
	KindText
	KindInlineCode
	KindLink
	KindTable
	KindTableRow
	KindTableCell
	KindHTMLBlock
)

// Node is a single element of the body AST. Not every field applies to
// every Kind: Depth is set only on KindHeading, Checked only on
// KindListItem, URL only on KindLink, Value holds literal text for
// KindText/KindInlineCode/KindHTMLBlock.
type Node struct {
	Kind     Kind
	Depth    int
	Checked  *bool
	URL      string
	Value    string
	Children []*Node
}

// NewRoot returns an empty document root.
func NewRoot() *Node {
	return &Node{Kind: KindRoot}
}

// Text returns the concatenated literal text of a node and its
// descendants, used by extractors that only care about a heading's or
// list item's rendered text rather than its inline structure.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindText, KindInlineCode:
		return n.Value
	}
	var out string
	for _, c := range n.Children {
		out += c.Text()
	}
	return out
}

// headingText returns a trimmed, case-normalized heading string for
// section-boundary matching.
func headingText(n *Node) string {
	return n.Text()
}

package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.TaskList),
)

// Parse converts raw Markdown body text into the typed AST. Unknown or
// unsupported goldmark node kinds (HTML comments such as the
// CLAUDE_MAIN_STATE marker, thematic breaks, blockquotes) are preserved
// as opaque KindHTMLBlock nodes carrying their original source slice so
// round-tripping never silently drops content.
func Parse(body string) (*Node, error) {
	src := []byte(body)
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader, parser.WithContext(parser.NewContext()))

	root := NewRoot()
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		root.Children = append(root.Children, convert(c, src))
	}
	return root, nil
}

func convert(n gast.Node, src []byte) *Node {
	switch v := n.(type) {
	case *gast.Heading:
		out := &Node{Kind: KindHeading, Depth: v.Level}
		out.Children = convertChildren(n, src)
		return out
	case *gast.Paragraph, *gast.TextBlock:
		return &Node{Kind: KindParagraph, Children: convertChildren(n, src)}
	case *gast.List:
		return &Node{Kind: KindList, Children: convertChildren(n, src)}
	case *gast.ListItem:
		out := &Node{Kind: KindListItem, Children: convertChildren(n, src)}
		if box := findTaskCheckBox(n); box != nil {
			checked := box.IsChecked
			out.Checked = &checked
		}
		return out
	case *gast.Text:
		return &Node{Kind: KindText, Value: string(v.Segment.Value(src))}
	case *gast.String:
		return &Node{Kind: KindText, Value: string(v.Value)}
	case *gast.CodeSpan:
		return &Node{Kind: KindInlineCode, Value: textOfChildren(n, src)}
	case *gast.AutoLink:
		url := string(v.URL(src))
		return &Node{Kind: KindLink, URL: url, Children: []*Node{{Kind: KindText, Value: url}}}
	case *gast.Link:
		return &Node{Kind: KindLink, URL: string(v.Destination), Children: convertChildren(n, src)}
	case *east.Table:
		return &Node{Kind: KindTable, Children: convertChildren(n, src)}
	case *east.TableRow, *east.TableHeader:
		return &Node{Kind: KindTableRow, Children: convertChildren(n, src)}
	case *east.TableCell:
		return &Node{Kind: KindTableCell, Children: convertChildren(n, src)}
	case *gast.HTMLBlock:
		var buf bytes.Buffer
		for i := 0; i < v.BaseBlock.Lines().Len(); i++ {
			line := v.BaseBlock.Lines().At(i)
			buf.Write(line.Value(src))
		}
		return &Node{Kind: KindHTMLBlock, Value: buf.String()}
	case *gast.ThematicBreak, *gast.Blockquote, *gast.CodeBlock, *gast.FencedCodeBlock:
		return &Node{Kind: KindHTMLBlock, Value: renderRaw(n, src)}
	default:
		if n.ChildCount() == 0 {
			return &Node{Kind: KindText, Value: ""}
		}
		return &Node{Kind: KindParagraph, Children: convertChildren(n, src)}
	}
}

func convertChildren(n gast.Node, src []byte) []*Node {
	var out []*Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, convert(c, src))
	}
	return out
}

func textOfChildren(n gast.Node, src []byte) string {
	var out string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gast.Text); ok {
			out += string(t.Segment.Value(src))
		}
	}
	if out == "" {
		// CodeSpan stores its literal in segments on itself in some goldmark
		// versions rather than as a Text child; fall back to raw slice.
		out = renderRaw(n, src)
	}
	return out
}

func findTaskCheckBox(n gast.Node) *east.TaskCheckBox {
	var found *east.TaskCheckBox
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if box, ok := c.(*east.TaskCheckBox); ok {
			found = box
			break
		}
		if t, ok := c.(*gast.TextBlock); ok {
			if inner := findTaskCheckBox(t); inner != nil {
				found = inner
				break
			}
		}
	}
	return found
}

func renderRaw(n gast.Node, src []byte) string {
	lines := n.Lines()
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		buf.Write(lines.At(i).Value(src))
	}
	return buf.String()
}

package markdown

import (
	"strings"
)

// Render serializes the AST back into CommonMark/GFM source text.
func Render(root *Node) string {
	var b strings.Builder
	for i, child := range root.Children {
		if i > 0 {
			b.WriteString("\n\n")
		}
		renderBlock(&b, child)
	}
	b.WriteString("\n")
	return b.String()
}

func renderBlock(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindHeading:
		b.WriteString(strings.Repeat("#", n.Depth))
		b.WriteString(" ")
		b.WriteString(renderInline(n.Children))
	case KindParagraph:
		b.WriteString(renderInline(n.Children))
	case KindList:
		for i, item := range n.Children {
			if i > 0 {
				b.WriteString("\n")
			}
			renderListItem(b, item)
		}
	case KindTable:
		renderTable(b, n)
	case KindHTMLBlock:
		b.WriteString(strings.TrimRight(n.Value, "\n"))
	default:
		b.WriteString(renderInline(n.Children))
	}
}

func renderListItem(b *strings.Builder, item *Node) {
	b.WriteString("- ")
	if item.Checked != nil {
		if *item.Checked {
			b.WriteString("[x] ")
		} else {
			b.WriteString("[ ] ")
		}
	}
	b.WriteString(renderInline(item.Children))
}

func renderInline(children []*Node) string {
	var b strings.Builder
	for _, c := range children {
		switch c.Kind {
		case KindText:
			b.WriteString(c.Value)
		case KindInlineCode:
			b.WriteString("`")
			b.WriteString(c.Value)
			b.WriteString("`")
		case KindLink:
			b.WriteString("[")
			b.WriteString(renderInline(c.Children))
			b.WriteString("](")
			b.WriteString(c.URL)
			b.WriteString(")")
		case KindParagraph:
			b.WriteString(renderInline(c.Children))
		default:
			b.WriteString(renderInline(c.Children))
		}
	}
	return b.String()
}

func renderTable(b *strings.Builder, table *Node) {
	if len(table.Children) == 0 {
		return
	}
	header := table.Children[0]
	cols := len(header.Children)
	writeRow(b, header)
	b.WriteString("\n")
	for i := 0; i < cols; i++ {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	for _, row := range table.Children[1:] {
		b.WriteString("\n")
		writeRow(b, row)
	}
}

func writeRow(b *strings.Builder, row *Node) {
	cells := make([]string, len(row.Children))
	for i, cell := range row.Children {
		cells[i] = renderInline(cell.Children)
	}
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |")
}

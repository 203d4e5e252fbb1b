package markdown

import (
	"fmt"
	"strings"
	"time"
)

// TodoItem is one checkbox line written by SetTodos.
type TodoItem struct {
	Text    string
	Checked bool
}

// QuestionItem is one checkbox line written by SetQuestions. ID becomes
// a trailing inline-code `id:slug` token used to re-identify the
// question across edits.
type QuestionItem struct {
	Text    string
	ID      string
	Checked bool
}

// HistoryAppend is the input to AppendHistoryRow. Empty optional fields
// render as the literal cell "-".
type HistoryAppend struct {
	Phase          string
	Action         string
	SHA            string
	RunLink        string
	Timestamp      time.Time
	IdempotencyKey string
}

// AppendHistoryRow finds or creates "## Iteration History" with its
// header row, then appends a data row. A second call carrying the same
// non-empty IdempotencyKey as a prior row's Run-link anchor text is a
// no-op (spec open question: history append is deduplicated only when
// the caller supplies an explicit key).
func AppendHistoryRow(root *Node, entry HistoryAppend) *Node {
	out := cloneChildren(root)
	sec, ok := findSection(out, "Iteration History")
	if !ok {
		heading := headingNode(2, "Iteration History")
		table := newHistoryTable()
		out.Children = append(out.Children, heading, table)
		sec, _ = findSection(out, "Iteration History")
	}
	var table *Node
	tableIdx := -1
	for i, n := range sec.body(out) {
		if n.Kind == KindTable {
			table = n
			tableIdx = sec.bodyStart + i
			break
		}
	}
	if table == nil {
		table = newHistoryTable()
		out.Children = append(out.Children[:sec.bodyStart], append([]*Node{table}, out.Children[sec.bodyStart:]...)...)
		tableIdx = sec.bodyStart
	}

	if entry.IdempotencyKey != "" {
		for _, row := range table.Children[1:] {
			if rowIdempotencyKey(row) == entry.IdempotencyKey {
				return out
			}
		}
	}

	iterationNum := len(table.Children) // header counts as row 0
	row := historyRow(iterationNum, entry)
	table.Children = append(table.Children, row)
	out.Children[tableIdx] = table
	return out
}

func rowIdempotencyKey(row *Node) string {
	if len(row.Children) < 6 {
		return ""
	}
	return strings.TrimSpace(row.Children[5].Text())
}

func newHistoryTable() *Node {
	header := &Node{Kind: KindTableRow}
	for _, col := range historyColumns {
		header.Children = append(header.Children, &Node{Kind: KindTableCell, Children: []*Node{textNode(col)}})
	}
	return &Node{Kind: KindTable, Children: []*Node{header}}
}

func historyRow(num int, entry HistoryAppend) *Node {
	cell := func(v string) *Node {
		if v == "" {
			v = "-"
		}
		return &Node{Kind: KindTableCell, Children: []*Node{textNode(v)}}
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	timeStr := ts.UTC().Format("Jan 2 15:04")
	row := &Node{Kind: KindTableRow}
	row.Children = append(row.Children,
		cell(timeStr),
		cell(fmt.Sprintf("%d", num)),
		cell(entry.Phase),
		cell(entry.Action),
		cell(entry.SHA),
		cell(entry.RunLink),
	)
	return row
}

// SetTodos replaces the contents of the Todo(s) section's checkbox list
// with items, preserving every other section verbatim. Creates the
// section (as "## Todos") if absent.
func SetTodos(root *Node, items []TodoItem) *Node {
	out := cloneChildren(root)
	list := &Node{Kind: KindList}
	for _, it := range items {
		checked := it.Checked
		list.Children = append(list.Children, &Node{
			Kind:     KindListItem,
			Checked:  &checked,
			Children: []*Node{textNode(it.Text)},
		})
	}
	return replaceSectionBody(out, []string{"Todo", "Todos"}, "Todos", 2, []*Node{list})
}

// SetQuestions replaces the contents of the Questions section.
func SetQuestions(root *Node, items []QuestionItem) *Node {
	out := cloneChildren(root)
	list := &Node{Kind: KindList}
	for _, it := range items {
		checked := it.Checked
		children := []*Node{textNode(it.Text + " ")}
		if it.ID != "" {
			children = append(children, &Node{Kind: KindInlineCode, Value: "id:" + it.ID})
		}
		list.Children = append(list.Children, &Node{
			Kind:     KindListItem,
			Checked:  &checked,
			Children: children,
		})
	}
	return replaceSectionBody(out, []string{"Questions"}, "Questions", 2, []*Node{list})
}

// replaceSectionBody swaps the body nodes following a heading matching
// one of names, creating the heading at the end of the document (at the
// given depth) when no match exists. All other top-level nodes are left
// untouched and in their original relative order.
func replaceSectionBody(root *Node, names []string, createTitle string, createDepth int, body []*Node) *Node {
	sec, ok := findSection(root, names...)
	if !ok {
		root.Children = append(root.Children, headingNode(createDepth, createTitle))
		root.Children = append(root.Children, body...)
		return root
	}
	newChildren := make([]*Node, 0, len(root.Children))
	newChildren = append(newChildren, root.Children[:sec.bodyStart]...)
	newChildren = append(newChildren, body...)
	newChildren = append(newChildren, root.Children[sec.bodyEnd:]...)
	root.Children = newChildren
	return root
}

// mainStateMarkerPrefix identifies the hidden HTML-comment block on
// parent issues carrying machine-readable state (spec.md §6).
const mainStateMarkerPrefix = "<!-- CLAUDE_MAIN_STATE"

// SetStatus writes the canonical project status into the CLAUDE_MAIN_STATE
// marker, creating the marker block if it does not yet exist. This
// mirrors the authoritative project-board Status field into the body so
// reconciliation can proceed even before the board write has propagated.
func SetStatus(root *Node, status string) *Node {
	out := cloneChildren(root)
	return setMarkerField(out, "status", status)
}

// SetLabels writes the label set into the CLAUDE_MAIN_STATE marker.
func SetLabels(root *Node, labels []string) *Node {
	out := cloneChildren(root)
	return setMarkerField(out, "labels", "["+strings.Join(labels, ", ")+"]")
}

func setMarkerField(root *Node, key, value string) *Node {
	idx := -1
	for i, n := range root.Children {
		if n.Kind == KindHTMLBlock && strings.HasPrefix(strings.TrimSpace(n.Value), mainStateMarkerPrefix) {
			idx = i
			break
		}
	}
	fields := map[string]string{}
	order := []string{}
	if idx >= 0 {
		fields, order = parseMarkerFields(root.Children[idx].Value)
	}
	if _, exists := fields[key]; !exists {
		order = append(order, key)
	}
	fields[key] = value
	marker := renderMarker(order, fields)
	if idx >= 0 {
		root.Children[idx] = marker
	} else {
		root.Children = append(root.Children, marker)
	}
	return root
}

func parseMarkerFields(raw string) (map[string]string, []string) {
	fields := map[string]string{}
	var order []string
	lines := strings.Split(raw, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "<!--") || strings.HasPrefix(line, "-->") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		fields[key] = strings.TrimSpace(parts[1])
		order = append(order, key)
	}
	return fields, order
}

func renderMarker(order []string, fields map[string]string) *Node {
	var b strings.Builder
	b.WriteString(mainStateMarkerPrefix + "\n")
	for _, k := range order {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(fields[k])
		b.WriteString("\n")
	}
	b.WriteString("-->")
	return &Node{Kind: KindHTMLBlock, Value: b.String()}
}

// cloneChildren returns a shallow copy of root with its own Children
// slice so mutators never alias the caller's slice backing array.
func cloneChildren(root *Node) *Node {
	out := &Node{Kind: root.Kind, Children: make([]*Node, len(root.Children))}
	copy(out.Children, root.Children)
	return out
}

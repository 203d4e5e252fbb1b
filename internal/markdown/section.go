package markdown

import "strings"

// section is a heading and the block nodes that follow it up to (but not
// including) the next heading of equal or lesser depth.
type section struct {
	headingIdx int // index of the heading node within root.Children
	heading    *Node
	bodyStart  int // index of the first body node within root.Children
	bodyEnd    int // exclusive
}

// findSection locates the first top-level heading whose text matches one
// of names (case-insensitive, exact match after trimming).
func findSection(root *Node, names ...string) (section, bool) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	for i, n := range root.Children {
		if n.Kind != KindHeading {
			continue
		}
		if !want[strings.ToLower(strings.TrimSpace(headingText(n)))] {
			continue
		}
		end := len(root.Children)
		for j := i + 1; j < len(root.Children); j++ {
			if root.Children[j].Kind == KindHeading && root.Children[j].Depth <= n.Depth {
				end = j
				break
			}
		}
		return section{headingIdx: i, heading: n, bodyStart: i + 1, bodyEnd: end}, true
	}
	return section{}, false
}

// sectionBody returns the block nodes belonging to a section.
func (s section) body(root *Node) []*Node {
	return root.Children[s.bodyStart:s.bodyEnd]
}

// hasSection reports whether a heading with one of the given names exists.
func hasSection(root *Node, names ...string) bool {
	_, ok := findSection(root, names...)
	return ok
}

func headingNode(depth int, text string) *Node {
	return &Node{Kind: KindHeading, Depth: depth, Children: []*Node{{Kind: KindText, Value: text}}}
}

func textNode(s string) *Node {
	return &Node{Kind: KindText, Value: s}
}

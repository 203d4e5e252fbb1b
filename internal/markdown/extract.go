package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// TodoStats summarizes checkbox completion under the Todo(s) heading.
type TodoStats struct {
	Total              int
	Completed          int
	UncheckedNonManual int
}

var manualMarker = regexp.MustCompile(`(?i)\[manual\]|\*\(manual\)\*`)

// TodoStatsOf returns the checkbox completion summary for the first
// heading matching "Todo" or "Todos".
func TodoStatsOf(root *Node) TodoStats {
	sec, ok := findSection(root, "Todo", "Todos")
	if !ok {
		return TodoStats{}
	}
	var stats TodoStats
	for _, n := range sec.body(root) {
		walkListItems(n, func(item *Node) {
			if item.Checked == nil {
				return
			}
			stats.Total++
			text := item.Text()
			if *item.Checked {
				stats.Completed++
				return
			}
			if !manualMarker.MatchString(text) {
				stats.UncheckedNonManual++
			}
		})
	}
	return stats
}

// TodosOf returns the individual checkbox items under the Todo(s)
// heading, in document order, for callers that need to toggle specific
// items rather than just read aggregate stats.
func TodosOf(root *Node) []TodoItem {
	sec, ok := findSection(root, "Todo", "Todos")
	if !ok {
		return nil
	}
	var items []TodoItem
	for _, n := range sec.body(root) {
		walkListItems(n, func(item *Node) {
			if item.Checked == nil {
				return
			}
			items = append(items, TodoItem{Text: item.Text(), Checked: *item.Checked})
		})
	}
	return items
}

func walkListItems(n *Node, fn func(item *Node)) {
	if n.Kind == KindListItem {
		fn(n)
	}
	for _, c := range n.Children {
		walkListItems(c, fn)
	}
}

// HistoryEntry is one row of the Iteration History table. Nil fields
// correspond to a literal "-" cell.
type HistoryEntry struct {
	Time   string
	Number int
	Phase  *string
	Action string
	SHA    *string
	Run    *string
}

var historyColumns = []string{"Time", "#", "Phase", "Action", "SHA", "Run"}

// HistoryOf extracts the Iteration History table rows in document order.
func HistoryOf(root *Node) []HistoryEntry {
	sec, ok := findSection(root, "Iteration History")
	if !ok {
		return nil
	}
	var table *Node
	for _, n := range sec.body(root) {
		if n.Kind == KindTable {
			table = n
			break
		}
	}
	if table == nil || len(table.Children) < 1 {
		return nil
	}
	var entries []HistoryEntry
	for _, row := range table.Children[1:] { // skip header row
		cells := make([]string, len(row.Children))
		for i, c := range row.Children {
			cells[i] = strings.TrimSpace(c.Text())
		}
		entries = append(entries, parseHistoryRow(cells))
	}
	return entries
}

func parseHistoryRow(cells []string) HistoryEntry {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return "-"
	}
	cell := func(i int) *string {
		v := get(i)
		if v == "-" || v == "" {
			return nil
		}
		return &v
	}
	num, _ := strconv.Atoi(get(1))
	return HistoryEntry{
		Time:   get(0),
		Number: num,
		Phase:  cell(2),
		Action: get(3),
		SHA:    cell(4),
		Run:    cell(5),
	}
}

// QuestionStats summarizes answered/unanswered items under Questions.
type QuestionStats struct {
	Total      int
	Answered   int
	Unanswered int
}

var questionIDPattern = regexp.MustCompile("`id:[a-zA-Z0-9_-]+`")

// QuestionsOf returns completion stats for the heading "Questions". An
// item is answered when its checkbox is checked.
func QuestionsOf(root *Node) QuestionStats {
	sec, ok := findSection(root, "Questions")
	if !ok {
		return QuestionStats{}
	}
	var stats QuestionStats
	for _, n := range sec.body(root) {
		walkListItems(n, func(item *Node) {
			if item.Checked == nil {
				return
			}
			stats.Total++
			if *item.Checked {
				stats.Answered++
			} else {
				stats.Unanswered++
			}
		})
	}
	return stats
}

// AgentNote is one `### [Run <id>](<url>) - <timestamp>` entry.
type AgentNote struct {
	RunID     string
	RunLink   string
	Timestamp string
	Notes     []string
}

var runHeadingPattern = regexp.MustCompile(`^\[Run (\d+)\]\(([^)]*)\)\s*-\s*(.+)$`)

// AgentNotesOf extracts third-level "Run" headings and their bullet
// notes from the Agent Notes section.
func AgentNotesOf(root *Node) []AgentNote {
	sec, ok := findSection(root, "Agent Notes")
	if !ok {
		return nil
	}
	var notes []AgentNote
	body := sec.body(root)
	for i := 0; i < len(body); i++ {
		n := body[i]
		if n.Kind != KindHeading || n.Depth != 3 {
			continue
		}
		m := runHeadingPattern.FindStringSubmatch(strings.TrimSpace(headingText(n)))
		if m == nil {
			continue
		}
		entry := AgentNote{RunID: m[1], RunLink: m[2], Timestamp: strings.TrimSpace(m[3])}
		for j := i + 1; j < len(body); j++ {
			if body[j].Kind == KindHeading {
				break
			}
			if body[j].Kind == KindList {
				walkListItems(body[j], func(item *Node) {
					entry.Notes = append(entry.Notes, strings.TrimSpace(item.Text()))
				})
			}
		}
		notes = append(notes, entry)
	}
	return notes
}

// BodyStructure flags which canonical sections are present and carries
// the derived stats for the ones that have them.
type BodyStructure struct {
	HasDescription       bool
	HasTodos             bool
	HasHistory           bool
	HasAgentNotes        bool
	HasQuestions         bool
	HasAffectedAreas     bool
	HasRequirements      bool
	HasApproach          bool
	HasAcceptanceCriteria bool
	HasTesting           bool
	HasRelated           bool
	TodoStats            *TodoStats
	QuestionStats        *QuestionStats
	HistoryEntries       []HistoryEntry
	AgentNotesEntries    []AgentNote
}

// BodyStructureOf computes presence flags and stats for the canonical
// issue-body sections.
func BodyStructureOf(root *Node) BodyStructure {
	var bs BodyStructure
	bs.HasDescription = hasSection(root, "Description")
	bs.HasTodos = hasSection(root, "Todo", "Todos")
	bs.HasHistory = hasSection(root, "Iteration History")
	bs.HasAgentNotes = hasSection(root, "Agent Notes")
	bs.HasQuestions = hasSection(root, "Questions")
	bs.HasAffectedAreas = hasSection(root, "Affected Areas")
	bs.HasRequirements = hasSection(root, "Requirements")
	bs.HasApproach = hasSection(root, "Approach")
	bs.HasAcceptanceCriteria = hasSection(root, "Acceptance Criteria")
	bs.HasTesting = hasSection(root, "Testing")
	bs.HasRelated = hasSection(root, "Related")

	if bs.HasTodos {
		stats := TodoStatsOf(root)
		bs.TodoStats = &stats
	}
	if bs.HasQuestions {
		stats := QuestionsOf(root)
		bs.QuestionStats = &stats
	}
	if bs.HasHistory {
		bs.HistoryEntries = HistoryOf(root)
	}
	if bs.HasAgentNotes {
		bs.AgentNotesEntries = AgentNotesOf(root)
	}
	return bs
}

// SubIssueInput is the minimal view of a sub-issue needed by
// SubIssueSpecsOf, kept free of any issuedata dependency so this package
// stays a leaf.
type SubIssueInput struct {
	Number        int
	Title         string
	State         string // OPEN, CLOSED
	Labels        []string
	PRState       string // "", OPEN, MERGED, CLOSED
	Body          string
}

// ExistingSubIssue is the parsed spec of one non-superseded sub-issue,
// including CLOSED ones (reconciliation must see completed phases).
type ExistingSubIssue struct {
	Number        int
	Title         string
	Description   string
	AffectedAreas []string
	Todos         TodoStats
	Superseded    bool
	Merged        bool
}

// SubIssueSpecsOf parses each sub-issue's Description/Affected
// Areas/Todos sections, filtering out superseded ones.
func SubIssueSpecsOf(subIssues []SubIssueInput) []ExistingSubIssue {
	var out []ExistingSubIssue
	for _, s := range subIssues {
		if containsLabel(s.Labels, "superseded") {
			continue
		}
		ast, err := Parse(s.Body)
		if err != nil {
			continue
		}
		spec := ExistingSubIssue{
			Number: s.Number,
			Title:  s.Title,
			Todos:  TodoStatsOf(ast),
		}
		if sec, ok := findSection(ast, "Description"); ok {
			spec.Description = strings.TrimSpace(renderPlainText(sec.body(ast)))
		}
		if sec, ok := findSection(ast, "Affected Areas"); ok {
			for _, n := range sec.body(ast) {
				walkListItems(n, func(item *Node) {
					spec.AffectedAreas = append(spec.AffectedAreas, strings.TrimSpace(item.Text()))
				})
			}
		}
		if s.State == "CLOSED" && s.PRState == "MERGED" {
			spec.Merged = true
		}
		out = append(out, spec)
	}
	return out
}

func containsLabel(labels []string, name string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

func renderPlainText(nodes []*Node) string {
	var parts []string
	for _, n := range nodes {
		if n.Kind == KindHeading {
			break
		}
		parts = append(parts, n.Text())
	}
	return strings.Join(parts, "\n")
}

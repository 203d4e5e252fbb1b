package issuedata

import (
	"time"

	"github.com/nopo-automation/issuebot/internal/markdown"
)

// AppendHistory appends a row to the issue's Iteration History table and
// re-serializes RawBody from the resulting AST.
func (i *Issue) AppendHistory(entry markdown.HistoryAppend) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	i.BodyAST = markdown.AppendHistoryRow(i.BodyAST, entry)
	i.RawBody = markdown.Render(i.BodyAST)
}

// SetTodos replaces the Todo(s) checkbox list.
func (i *Issue) SetTodos(items []markdown.TodoItem) {
	i.BodyAST = markdown.SetTodos(i.BodyAST, items)
	i.RawBody = markdown.Render(i.BodyAST)
}

// SetQuestions replaces the Questions checkbox list.
func (i *Issue) SetQuestions(items []markdown.QuestionItem) {
	i.BodyAST = markdown.SetQuestions(i.BodyAST, items)
	i.RawBody = markdown.Render(i.BodyAST)
}

// SetBodyStatus mirrors the project status into the body's
// CLAUDE_MAIN_STATE marker. The authoritative value remains the
// project-board field written via Repository.UpdateProjectFields.
func (i *Issue) SetBodyStatus(status ProjectStatus) {
	i.BodyAST = markdown.SetStatus(i.BodyAST, string(status))
	i.RawBody = markdown.Render(i.BodyAST)
}

// SetBodyLabels mirrors the label set into the body's CLAUDE_MAIN_STATE
// marker.
func (i *Issue) SetBodyLabels(labels []string) {
	i.BodyAST = markdown.SetLabels(i.BodyAST, labels)
	i.RawBody = markdown.Render(i.BodyAST)
}

// TodoStats returns the issue body's checkbox completion summary.
func (i *Issue) TodoStats() markdown.TodoStats {
	return markdown.TodoStatsOf(i.BodyAST)
}

// Todos returns the individual todo checkbox items, for callers that
// toggle specific items (e.g. applying an iteration's completed list)
// rather than replacing the whole set.
func (i *Issue) Todos() []markdown.TodoItem {
	return markdown.TodosOf(i.BodyAST)
}

// BodyStructure returns the issue body's section presence flags.
func (i *Issue) BodyStructure() markdown.BodyStructure {
	return markdown.BodyStructureOf(i.BodyAST)
}

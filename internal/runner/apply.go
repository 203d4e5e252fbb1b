package runner

import (
	"fmt"

	"github.com/nopo-automation/issuebot/internal/issuedata"
	"github.com/nopo-automation/issuebot/internal/markdown"
)

// findIssue returns a pointer to the Issue matching number within data:
// the primary issue itself, or one of its sub-issues.
func findIssue(data *issuedata.IssueData, number int) (*issuedata.Issue, error) {
	if data.Issue.Number == number {
		return &data.Issue, nil
	}
	for i := range data.Issue.SubIssues {
		if data.Issue.SubIssues[i].Number == number {
			return &data.Issue.SubIssues[i], nil
		}
	}
	return nil, fmt.Errorf("runner: issue #%d not present in the fetched aggregate", number)
}

func addUniqueLabel(issue *issuedata.Issue, labels ...string) {
	next := append([]string(nil), issue.Labels...)
	for _, l := range labels {
		if l == "" || issue.HasLabel(l) {
			continue
		}
		next = append(next, l)
	}
	issue.Labels = next
	issue.SetBodyLabels(issue.Labels)
}

func removeLabel(issue *issuedata.Issue, label string) {
	next := issue.Labels[:0:0]
	for _, l := range issue.Labels {
		if l != label {
			next = append(next, l)
		}
	}
	issue.Labels = next
	issue.SetBodyLabels(issue.Labels)
}

// applyTriageOutput folds a TriageOutput into the issue's labels and
// question list (spec.md §4.6's applyTriageOutput action).
func applyTriageOutput(issue *issuedata.Issue, out *TriageOutput) {
	labels := append([]string{"triaged"}, out.Labels...)
	if out.NeedsInfo {
		labels = append(labels, "needs-info")
	}
	addUniqueLabel(issue, labels...)

	if len(out.Questions) > 0 {
		items := make([]markdown.QuestionItem, 0, len(out.Questions))
		for i, q := range out.Questions {
			items = append(items, markdown.QuestionItem{Text: q, ID: fmt.Sprintf("q%d", i+1)})
		}
		issue.SetQuestions(items)
	}
}

// applyGroomingOutput folds a GroomingOutput's flat todo list into the
// issue body; sub-issue creation is reconcileSubIssues's job.
func applyGroomingOutput(issue *issuedata.Issue, out *GroomingOutput) {
	addUniqueLabel(issue, "groomed")
	if len(out.Todos) > 0 {
		items := make([]markdown.TodoItem, 0, len(out.Todos))
		for _, t := range out.Todos {
			items = append(items, markdown.TodoItem{Text: t})
		}
		issue.SetTodos(items)
	}
}

// applyIterationOutput checks off completed todos and records the
// commit an iteration produced.
func applyIterationOutput(issue *issuedata.Issue, out *IterationOutput) {
	if len(out.TodosChecked) == 0 {
		return
	}
	checked := make(map[string]bool, len(out.TodosChecked))
	for _, t := range out.TodosChecked {
		checked[t] = true
	}
	current := issue.Todos()
	items := make([]markdown.TodoItem, 0, len(current))
	for _, item := range current {
		if checked[item.Text] {
			item.Checked = true
		}
		items = append(items, item)
	}
	issue.SetTodos(items)
}

// applyPrResponseOutput checks off todos a PR-review response
// addressed, mirroring applyIterationOutput.
func applyPrResponseOutput(issue *issuedata.Issue, out *PRResponseOutput) {
	if len(out.TodosChecked) == 0 {
		return
	}
	applyIterationOutput(issue, &IterationOutput{TodosChecked: out.TodosChecked})
}

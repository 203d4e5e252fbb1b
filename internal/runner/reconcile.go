package runner

import (
	"context"
	"fmt"

	"github.com/nopo-automation/issuebot/internal/issuedata"
)

// reconcileSubIssues creates new `[Phase N]` sub-issues for phases the
// grooming output names but the parent doesn't yet have, and marks
// stale sub-issues (phases no longer named) as superseded, preserving
// closed or already-superseded ones untouched (spec.md §4.6's
// reconcileSubIssues action).
func (r *Runner) reconcileSubIssues(ctx context.Context, data *issuedata.IssueData, out *GroomingOutput) error {
	wantedPhases := make(map[int]GroomingSubIssueSpec, len(out.SubIssues))
	for _, spec := range out.SubIssues {
		wantedPhases[spec.Phase] = spec
	}

	havePhases := make(map[int]bool)
	for _, sub := range data.Issue.SubIssues {
		if phase, ok := issuedata.PhaseOf(sub.Title); ok {
			havePhases[phase] = true
		}
	}

	for phase, spec := range wantedPhases {
		if havePhases[phase] {
			continue
		}
		title := fmt.Sprintf("[Phase %d] %s", spec.Phase, spec.Title)
		number, err := r.VCS.CreateIssue(ctx, title, spec.Body, nil, &data.Issue.Number)
		if err != nil {
			return fmt.Errorf("runner: create sub-issue for phase %d: %w", phase, err)
		}
		parentRef := data.Issue.Number
		data.Issue.SubIssues = append(data.Issue.SubIssues, issuedata.Issue{
			Number:            number,
			Title:             title,
			RawBody:           spec.Body,
			State:             issuedata.StateOpen,
			ParentIssueNumber: &parentRef,
		})
		if err := r.VCS.AddSubIssueToParent(ctx, data.Issue.Number, number); err != nil {
			return fmt.Errorf("runner: link sub-issue #%d to parent: %w", number, err)
		}
	}

	for i := range data.Issue.SubIssues {
		sub := &data.Issue.SubIssues[i]
		if sub.State == issuedata.StateClosed || sub.HasLabel("superseded") {
			continue
		}
		phase, ok := issuedata.PhaseOf(sub.Title)
		if _, want := wantedPhases[phase]; ok && !want {
			sub.Labels = append(append([]string(nil), sub.Labels...), "superseded")
		}
	}
	data.Issue.HasSubIssues = len(data.Issue.SubIssues) > 0
	return nil
}

// Package loader implements the Context Loader (spec.md §4.3): it
// composes a fetched issuedata.IssueData with event-specific fields
// (ciResult, reviewDecision, commentContext) into the immutable
// machine.MachineContext the State Machine consumes.
package loader

import (
	"context"
	"fmt"

	"github.com/nopo-automation/issuebot/internal/issuedata"
	"github.com/nopo-automation/issuebot/internal/machine"
	"github.com/nopo-automation/issuebot/internal/router"
)

// EventContext carries the event-derived fields the repository fetch
// cannot supply on its own (spec.md §4.3 steps 3-4).
type EventContext struct {
	Trigger          machine.Trigger
	CIResult         machine.CIResult
	ReviewDecision   machine.ReviewDecision
	CommentContext   string
	PivotDescription string
	MaxRetries       int
	BotUsername      string
	ReviewerUsername string
}

// Load fetches owner/repo/issueNumber via repo.ParseIssue and composes
// a MachineContext, returning both the fetched IssueData (for the Action
// Runner to mutate in place) and the Persist closure bound to the
// originally fetched snapshot so the caller can write back whatever the
// machine's action queue produces.
func Load(ctx context.Context, repo issuedata.Repository, owner, repoName string, issueNumber int, ev EventContext) (machine.MachineContext, *issuedata.IssueData, issuedata.PersistFunc, error) {
	opts := issuedata.FetchOptions{
		BotUsername: ev.BotUsername,
		FetchPRs:    true,
		FetchParent: true,
	}
	data, persist, err := repo.ParseIssue(ctx, owner, repoName, issueNumber, opts)
	if err != nil {
		return machine.MachineContext{}, nil, nil, fmt.Errorf("loader: parse issue #%d: %w", issueNumber, err)
	}

	mc := machine.MachineContext{
		Trigger:          ev.Trigger,
		Owner:            owner,
		Repo:             repoName,
		Issue:            toIssueView(data.Issue),
		CommentContext:   ev.CommentContext,
		PivotDescription: ev.PivotDescription,
		MaxRetries:       ev.MaxRetries,
		BotUsername:      ev.BotUsername,
		ReviewerUsername: ev.ReviewerUsername,
		Branch:           data.Issue.Branch,
		HasBranch:        data.Issue.Branch != "",
	}

	if data.ParentIssue != nil {
		pv := toIssueView(*data.ParentIssue)
		mc.ParentIssue = &pv
	}

	ordered := issuedata.OrderSubIssues(data.Issue.SubIssues)
	mc.SubIssues = make([]machine.IssueView, 0, len(ordered))
	for _, s := range ordered {
		mc.SubIssues = append(mc.SubIssues, toIssueView(s))
	}
	mc.TotalPhases = len(ordered)
	if cur := issuedata.CurrentSubIssue(ordered); cur != nil {
		v := toIssueView(*cur)
		mc.CurrentSubIssue = &v
		mc.CurrentPhase, _ = issuedata.PhaseOf(cur.Title)
	}

	mc.CIResult = ev.CIResult
	mc.ReviewDecision = ev.ReviewDecision
	if mc.CIResult == "" {
		mc.CIResult = ciResultFromPR(data.Issue.PR)
	}
	if mc.ReviewDecision == "" {
		mc.ReviewDecision = reviewDecisionFromPR(data.Issue.PR)
	}

	if data.Issue.PR != nil {
		mc.HasPR = true
		pr := toPRView(*data.Issue.PR)
		mc.PR = &pr
	}

	return mc, &data, persist, nil
}

func toIssueView(i issuedata.Issue) machine.IssueView {
	stats := i.TodoStats()
	return machine.IssueView{
		Number:             i.Number,
		State:              string(i.State),
		ProjectStatus:      string(i.ProjectStatus),
		Iteration:          i.Iteration,
		Failures:           i.Failures,
		Assignees:          i.Assignees,
		Labels:             i.Labels,
		HasSubIssues:       i.HasSubIssues,
		UncheckedNonManual: stats.UncheckedNonManual,
		IsSubIssue:         i.IsSubIssue(),
	}
}

func toPRView(pr issuedata.PullRequest) machine.PRView {
	return machine.PRView{
		Number:  pr.Number,
		State:   string(pr.State),
		IsDraft: pr.IsDraft,
	}
}

// ciResultFromPR derives ciResult from the linked PR's combined commit
// status when the triggering event itself carried none (spec.md §4.3
// step 3: "absent that, from the linked PR's latest CI status"). A real
// workflow-run-completed event is the expected source; this fallback
// only covers dispatches triggered by something else while a CI result
// is still informative (e.g. a comment trigger re-evaluating an issue
// mid-flight). internal/ghclient populates PullRequest.CI at fetch time
// via the Checks/Status API; this is a pure mapping over that field.
func ciResultFromPR(pr *issuedata.PullRequest) machine.CIResult {
	if pr == nil {
		return machine.CINone
	}
	switch pr.CI {
	case issuedata.CIStatusSuccess:
		return machine.CISuccess
	case issuedata.CIStatusFailure:
		return machine.CIFailure
	case issuedata.CIStatusCancelled:
		return machine.CICancelled
	case issuedata.CIStatusSkipped:
		return machine.CISkipped
	default:
		return machine.CINone
	}
}

// reviewDecisionFromPR derives reviewDecision from the PR's most recent
// non-dismissed review (spec.md §4.3 step 4).
func reviewDecisionFromPR(pr *issuedata.PullRequest) machine.ReviewDecision {
	if pr == nil || len(pr.Reviews) == 0 {
		return machine.ReviewNone
	}
	latest := pr.Reviews[len(pr.Reviews)-1]
	switch latest.State {
	case "APPROVED":
		return machine.ReviewApproved
	case "CHANGES_REQUESTED":
		return machine.ReviewChangesRequested
	case "COMMENTED", "REVIEW_REQUIRED":
		return machine.ReviewCommented
	default:
		return machine.ReviewNone
	}
}

// TriggerFromEventKind maps an Event Router kind to the Trigger the
// state machine groups its guards by (spec.md §4.3/§4.4's job->trigger
// correspondence).
func TriggerFromEventKind(kind router.EventKind) machine.Trigger {
	switch kind {
	case router.KindIssueOpened:
		return machine.TriggerTriage
	case router.KindIssueAssigned:
		return machine.TriggerAssigned
	case router.KindWorkflowRunCompleted:
		return machine.TriggerCI
	case router.KindPRReviewSubmitted:
		return machine.TriggerReview
	case router.KindPRReviewRequested:
		return machine.TriggerReviewRequested
	case router.KindPRPush:
		return machine.TriggerPRPush
	case router.KindIssueComment, router.KindDiscussionComment:
		return machine.TriggerComment
	case router.KindMergeGroupEntered:
		return machine.TriggerMergeQueueEntered
	case router.KindWorkflowDispatch:
		return machine.TriggerOrchestrate
	default:
		return machine.TriggerComment
	}
}

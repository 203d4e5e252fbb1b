package machine

import (
	"testing"

	"github.com/nopo-automation/issuebot/internal/actions"
)

func baseContext() MachineContext {
	return MachineContext{
		Owner:       "acme",
		Repo:        "widgets",
		BotUsername: "claude-bot",
		MaxRetries:  3,
		Issue: IssueView{
			Number:        42,
			State:         "OPEN",
			ProjectStatus: "Backlog",
			Labels:        []string{"triaged", "groomed"},
			Assignees:     []string{"claude-bot"},
		},
	}
}

func TestRunIsDeterministic(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerAssigned
	c.Issue.UncheckedNonManual = 2

	r1 := Run(c)
	r2 := Run(c)
	if r1.State != r2.State {
		t.Fatalf("non-deterministic state: %v vs %v", r1.State, r2.State)
	}
	if len(r1.Actions) != len(r2.Actions) {
		t.Fatalf("non-deterministic queue length: %d vs %d", len(r1.Actions), len(r2.Actions))
	}
}

func TestAlreadyDoneShortCircuits(t *testing.T) {
	c := baseContext()
	c.Issue.ProjectStatus = "Done"
	c.PR = &PRView{Number: 7, State: "MERGED"}
	c.Trigger = TriggerCI

	r := Run(c)
	if r.State != StateDone {
		t.Fatalf("want done, got %v", r.State)
	}
	if len(r.Actions) != 0 {
		t.Fatalf("want empty queue, got %v", r.Actions)
	}
}

func TestBlockedStateIsSticky(t *testing.T) {
	c := baseContext()
	c.Issue.ProjectStatus = "Blocked"
	c.Trigger = TriggerCI

	r := Run(c)
	if r.State != StateAlreadyBlocked {
		t.Fatalf("want alreadyBlocked, got %v", r.State)
	}
}

func TestSubIssueIdleWhenBotNotAssigned(t *testing.T) {
	c := baseContext()
	c.Issue.IsSubIssue = true
	c.Issue.Assignees = nil
	c.Trigger = TriggerComment

	r := Run(c)
	if r.State != StateSubIssueIdle {
		t.Fatalf("want subIssueIdle, got %v", r.State)
	}
}

func TestNeedsTriageBeforeAssignment(t *testing.T) {
	c := baseContext()
	c.Issue.Labels = nil
	c.Trigger = TriggerAssigned

	r := Run(c)
	if r.State != StateTriaging {
		t.Fatalf("want triaging, got %v", r.State)
	}
	found := false
	for _, a := range r.Actions {
		if a.Kind == actions.KindRunClaude && a.RunClaudeKind == actions.RunClaudeTriage {
			found = true
		}
	}
	if !found {
		t.Fatalf("triage queue missing runClaude(triage): %v", r.Actions)
	}
}

func TestCIFailureBelowMaxRetriesContinuesIterating(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerCI
	c.CIResult = CIFailure
	c.Issue.Failures = 1
	c.HasBranch = true

	r := Run(c)
	if r.State != StateIteratingFix {
		t.Fatalf("want iteratingFix, got %v", r.State)
	}
	var sawRecordFailure, sawRetry bool
	for _, a := range r.Actions {
		if a.Kind == actions.KindRecordFailure {
			sawRecordFailure = true
		}
		if a.Kind == actions.KindRunClaude && a.RunClaudeKind == actions.RunClaudeRetry {
			sawRetry = true
		}
	}
	if !sawRecordFailure || !sawRetry {
		t.Fatalf("expected recordFailure + runClaude(retry) in queue: %v", r.Actions)
	}
}

func TestCIFailureAtMaxRetriesBlocks(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerCI
	c.CIResult = CIFailure
	c.Issue.Failures = 3
	c.HasBranch = true

	r := Run(c)
	if r.State != StateBlocked {
		t.Fatalf("want blocked, got %v", r.State)
	}
	var sawUnassign bool
	for _, a := range r.Actions {
		if a.Kind == actions.KindUnassignUser {
			sawUnassign = true
		}
	}
	if !sawUnassign {
		t.Fatalf("expected unassignUser in blocked queue: %v", r.Actions)
	}
}

func TestCISuccessWithTodosDoneTransitionsToReview(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerCI
	c.CIResult = CISuccess
	c.Issue.UncheckedNonManual = 0
	c.HasBranch = true
	c.PR = &PRView{Number: 9, State: "OPEN", IsDraft: true}

	r := Run(c)
	if r.State != StateReviewing {
		t.Fatalf("want reviewing, got %v", r.State)
	}
	var sawMarkReady, sawRequestReviewer bool
	for _, a := range r.Actions {
		if a.Kind == actions.KindMarkPRReady {
			sawMarkReady = true
		}
		if a.Kind == actions.KindRequestReviewer {
			sawRequestReviewer = true
		}
	}
	if !sawMarkReady || !sawRequestReviewer {
		t.Fatalf("expected markPRReady + requestReviewer in queue: %v", r.Actions)
	}
}

func TestReviewApprovedGoesToAwaitingMerge(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerReview
	c.ReviewDecision = ReviewApproved
	c.PR = &PRView{Number: 9, State: "OPEN"}

	r := Run(c)
	if r.State != StateAwaitingMerge {
		t.Fatalf("want awaitingMerge, got %v", r.State)
	}
}

func TestReviewChangesRequestedGoesToIterating(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerReview
	c.ReviewDecision = ReviewChangesRequested
	c.PR = &PRView{Number: 9, State: "OPEN"}
	c.HasBranch = true

	r := Run(c)
	if r.State != StateIterating {
		t.Fatalf("want iterating, got %v", r.State)
	}
	var sawPRResponse bool
	for _, a := range r.Actions {
		if a.Kind == actions.KindRunClaude && a.RunClaudeKind == actions.RunClaudePRResponse {
			sawPRResponse = true
		}
	}
	if !sawPRResponse {
		t.Fatalf("expected runClaude(prResponse) in queue: %v", r.Actions)
	}
}

func TestPivotBlocksAndRecordsDescription(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerPivot
	c.PivotDescription = "switch to a queue-based design"

	r := Run(c)
	if r.State != StatePivoting {
		t.Fatalf("want pivoting, got %v", r.State)
	}
	found := false
	for _, a := range r.Actions {
		if a.Kind == actions.KindAppendHistory && a.Message != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected appendHistory recording the pivot: %v", r.Actions)
	}
}

func TestOrchestrationCompleteWhenAllPhasesDone(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerOrchestrate
	c.Issue.HasSubIssues = true
	c.SubIssues = []IssueView{
		{Number: 43, ProjectStatus: "Done"},
		{Number: 44, State: "CLOSED"},
	}

	r := Run(c)
	if r.State != StateOrchestrationComplete {
		t.Fatalf("want orchestrationComplete, got %v", r.State)
	}
}

func TestOrchestrationRunningWhenPhasesRemain(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerOrchestrate
	c.Issue.HasSubIssues = true
	c.SubIssues = []IssueView{
		{Number: 43, ProjectStatus: "Done"},
		{Number: 44, ProjectStatus: "In progress"},
	}

	r := Run(c)
	if r.State != StateOrchestrationRunning {
		t.Fatalf("want orchestrationRunning, got %v", r.State)
	}
}

func TestInvalidIterationWhenAssignedWithNothingToDo(t *testing.T) {
	c := baseContext()
	c.Trigger = ""
	c.Issue.HasSubIssues = false
	c.Issue.UncheckedNonManual = 0

	r := Run(c)
	if r.State != StateInvalidIteration {
		t.Fatalf("want invalidIteration, got %v", r.State)
	}
}

// TestAssignedWithCIBackfilledTransitionsToReview covers issue edited /
// bot assigned with labels=[triaged,groomed], no sub-issues, branch
// exists, CI=success, todos done: the loader backfills CIResult from the
// PR's check-run state for exactly this non-CI trigger, and resolve's
// default branch must consult it rather than falling through to
// invalidIteration.
func TestAssignedWithCIBackfilledTransitionsToReview(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerAssigned
	c.Issue.HasSubIssues = false
	c.Issue.UncheckedNonManual = 0
	c.CIResult = CISuccess
	c.HasBranch = true

	r := Run(c)
	if r.State != StateReviewing {
		t.Fatalf("want reviewing, got %v", r.State)
	}
}

// TestAssignedWithCIBackfilledFailureContinuesIterating mirrors the
// above with a failing backfilled CIResult below max retries.
func TestAssignedWithCIBackfilledFailureContinuesIterating(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerAssigned
	c.Issue.HasSubIssues = false
	c.Issue.Failures = 0
	c.CIResult = CIFailure
	c.HasBranch = true

	r := Run(c)
	if r.State != StateIteratingFix {
		t.Fatalf("want iteratingFix, got %v", r.State)
	}
}

// TestAssignedWithCIBackfilledFailureAtMaxRetriesBlocks mirrors the
// above at max retries.
func TestAssignedWithCIBackfilledFailureAtMaxRetriesBlocks(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerAssigned
	c.Issue.HasSubIssues = false
	c.Issue.Failures = c.MaxRetries
	c.CIResult = CIFailure
	c.HasBranch = true

	r := Run(c)
	if r.State != StateBlocked {
		t.Fatalf("want blocked, got %v", r.State)
	}
}

func TestPRReviewRequestWithCISuccessRunsReview(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerReviewRequested
	c.CIResult = CISuccess
	c.PR = &PRView{Number: 9, State: "OPEN"}

	r := Run(c)
	if r.State != StatePRReviewing {
		t.Fatalf("want prReviewing, got %v", r.State)
	}
	var sawRequestReviewer, sawRunReview, sawApplyReviewOutput bool
	for i, a := range r.Actions {
		switch a.Kind {
		case actions.KindRequestReviewer:
			sawRequestReviewer = true
		case actions.KindRunClaude:
			if a.RunClaudeKind == actions.RunClaudeReview {
				sawRunReview = true
			}
		case actions.KindApplyReviewOutput:
			sawApplyReviewOutput = true
			if i == 0 || r.Actions[i-1].Kind != actions.KindRunClaude {
				t.Fatalf("applyReviewOutput must follow runClaude(review), got queue %+v", r.Actions)
			}
		}
	}
	if !sawRequestReviewer || !sawRunReview || !sawApplyReviewOutput {
		t.Fatalf("want requestReviewer, runClaude(review), applyReviewOutput, got %+v", r.Actions)
	}
}

func TestPRPushReturnsToDraft(t *testing.T) {
	c := baseContext()
	c.Trigger = TriggerPRPush
	c.PR = &PRView{Number: 9, State: "OPEN"}

	r := Run(c)
	if r.State != StatePRPush {
		t.Fatalf("want prPush, got %v", r.State)
	}
	var sawDraft bool
	for _, a := range r.Actions {
		if a.Kind == actions.KindConvertPRToDraft {
			sawDraft = true
		}
	}
	if !sawDraft {
		t.Fatalf("expected convertPRToDraft in queue: %v", r.Actions)
	}
}

func TestAllowedSuccessorsCoverRealTransitions(t *testing.T) {
	succ := AllowedSuccessors(StateIterating)
	want := StateReviewing
	ok := false
	for _, s := range succ {
		if s == want {
			ok = true
		}
	}
	if !ok {
		t.Fatalf("expected %v among successors of iterating, got %v", want, succ)
	}
}

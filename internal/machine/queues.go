package machine

import "github.com/nopo-automation/issuebot/internal/actions"

// buildQueue returns the deterministic action queue for a resolved
// state (spec.md §4.5 "Pending-action emission per state"). Queues not
// given verbatim in spec.md are filled in following the same pattern:
// history is appended for every state transition that changes the
// world, and project-board/assignee mutations precede the Agent
// invocation they gate.
func buildQueue(s State, c MachineContext) []actions.PendingAction {
	issue := c.Issue.Number

	switch s {
	case StateTriaging:
		return []actions.PendingAction{
			appendHistory(issue, "Triage", "Running automated triage"),
			runClaude(issue, actions.RunClaudeTriage, c),
			{Kind: actions.KindApplyTriageOutput, IssueNumber: issue},
			updateStatus(issue, "Triaged"),
		}

	case StateGrooming:
		return []actions.PendingAction{
			appendHistory(issue, "Grooming", "Running automated grooming"),
			runClaude(issue, actions.RunClaudeGrooming, c),
			{Kind: actions.KindApplyGroomingOutput, IssueNumber: issue},
			{Kind: actions.KindReconcileSubIssues, IssueNumber: issue},
		}

	case StateIterating, StateIteratingFix:
		return iteratingQueue(s, c)

	case StateReviewing:
		return reviewingQueue(c)

	case StateBlocked:
		return []actions.PendingAction{
			updateStatus(issue, "Blocked"),
			{Kind: actions.KindUnassignUser, IssueNumber: issue, Username: c.BotUsername},
			appendHistory(issue, "", "Blocked: Max failures reached ("+itoa(c.Issue.Failures)+")"),
		}

	case StatePRPush:
		return []actions.PendingAction{
			{Kind: actions.KindConvertPRToDraft, IssueNumber: issue, PRNumber: prNumber(c)},
			{Kind: actions.KindRemoveReviewer, IssueNumber: issue, PRNumber: prNumber(c), Username: c.BotUsername},
			updateStatus(issue, "In progress"),
			appendHistory(issue, "", "New commits pushed; PR converted back to draft"),
		}

	case StateOrchestrationComplete:
		return []actions.PendingAction{
			updateStatus(issue, "Done"),
			{Kind: actions.KindCloseIssue, IssueNumber: issue},
			appendHistory(issue, "", "All phases complete"),
		}

	case StateOrchestrationRunning:
		return orchestrationRunningQueue(c)

	case StateResetting:
		q := []actions.PendingAction{
			{Kind: actions.KindResetIssue, IssueNumber: issue},
			updateStatus(issue, "Backlog"),
			{Kind: actions.KindClearFailures, IssueNumber: issue},
		}
		for _, sub := range c.SubIssues {
			q = append(q, actions.PendingAction{Kind: actions.KindRemoveFromProject, IssueNumber: sub.Number})
		}
		return q

	case StateInvalidIteration:
		return []actions.PendingAction{
			appendHistory(issue, "", "Invalid iteration: bot assigned with no sub-issues and no pending todos"),
			{Kind: actions.KindAddComment, IssueNumber: issue, CommentBody: "Automated assignment could not find pending work on this issue. Please check its Todos or sub-issues."},
			updateStatus(issue, "Blocked"),
		}

	case StatePivoting:
		return []actions.PendingAction{
			updateStatus(issue, "Blocked"),
			appendHistory(issue, "", "Pivot requested: "+c.PivotDescription),
		}

	case StateAwaitingMerge:
		return []actions.PendingAction{
			appendHistory(issue, "", "Review approved, awaiting merge"),
		}

	case StateCommenting:
		return []actions.PendingAction{
			runClaude(issue, actions.RunClaudeComment, c),
		}

	case StatePRReviewing:
		q := []actions.PendingAction{
			{Kind: actions.KindRequestReviewer, IssueNumber: issue, PRNumber: prNumber(c), Username: c.ReviewerUsername},
		}
		q = append(q, runClaude(issue, actions.RunClaudeReview, c))
		q = append(q, actions.PendingAction{Kind: actions.KindApplyReviewOutput, IssueNumber: issue})
		return q

	case StatePRReviewAssigned:
		return []actions.PendingAction{
			appendHistory(issue, "", "Review requested before CI status is known"),
		}

	case StatePRReviewSkipped:
		return []actions.PendingAction{
			appendHistory(issue, "", "Review request skipped: CI failing"),
		}

	case StateMergeQueueLogging:
		return []actions.PendingAction{appendHistory(issue, "", "Entered merge queue")}
	case StateMergeQueueFailureLogging:
		return []actions.PendingAction{appendHistory(issue, "", "Merge queue entry failed CI")}
	case StateDeployedStageLogging:
		return []actions.PendingAction{appendHistory(issue, "", "Deployed to stage")}
	case StateDeployedStageFailureLogging:
		return []actions.PendingAction{appendHistory(issue, "", "Stage deployment failed")}
	case StateDeployedProdLogging:
		return []actions.PendingAction{appendHistory(issue, "", "Deployed to production")}
	case StateDeployedProdFailureLogging:
		return []actions.PendingAction{appendHistory(issue, "", "Production deployment failed")}

	default:
		// done, alreadyBlocked, error, subIssueIdle: pure observation
		// states; the world is already correct or the machine declines
		// to act until the next dispatch changes the inputs.
		return emptyActions
	}
}

// reviewingQueue builds the queue for the "reviewing" state. CI-triggered
// entry (readyForReview) performs the full hand-off to human review; a
// COMMENTED review decision just keeps the issue sitting in review
// without repeating the hand-off actions (spec.md §4.5 step 12's "stay
// reviewing" branch).
func reviewingQueue(c MachineContext) []actions.PendingAction {
	issue := c.Issue.Number
	if c.Trigger != TriggerCI {
		return []actions.PendingAction{
			appendHistory(issue, "", "Review comment received, awaiting further action"),
		}
	}
	q := []actions.PendingAction{
		{Kind: actions.KindClearFailures, IssueNumber: issue},
	}
	if c.PR != nil && c.PR.IsDraft {
		q = append(q, actions.PendingAction{Kind: actions.KindMarkPRReady, IssueNumber: issue, PRNumber: c.PR.Number})
	}
	q = append(q,
		updateStatus(issue, "In review"),
		actions.PendingAction{Kind: actions.KindRequestReviewer, IssueNumber: issue, PRNumber: prNumber(c), Username: c.ReviewerUsername},
	)
	return q
}

func iteratingQueue(s State, c MachineContext) []actions.PendingAction {
	issue := c.Issue.Number
	var q []actions.PendingAction
	if c.CIResult == CIFailure {
		q = append(q, actions.PendingAction{Kind: actions.KindRecordFailure, IssueNumber: issue, FailureKind: "ci"})
	}
	q = append(q, updateStatus(issue, "In progress"))
	if !c.HasBranch {
		q = append(q, actions.PendingAction{Kind: actions.KindCreateBranch, IssueNumber: issue, BranchName: branchName(c), BaseBranch: "main"})
	}
	q = append(q, actions.PendingAction{Kind: actions.KindIncrementIteration, IssueNumber: issue})
	q = append(q, appendHistory(issue, c.Phase(), "Iterating"))

	kind := actions.RunClaudeIterate
	switch {
	case s == StateIteratingFix:
		kind = actions.RunClaudeRetry
	case c.Trigger == TriggerReview:
		kind = actions.RunClaudePRResponse
	}
	q = append(q, runClaude(issue, kind, c))
	q = append(q, actions.PendingAction{Kind: actions.KindApplyIterationOutput, IssueNumber: issue})
	if c.PR == nil {
		q = append(q, actions.PendingAction{
			Kind:        actions.KindCreatePR,
			IssueNumber: issue,
			BranchName:  branchName(c),
			PRTitle:     "",
			PRBody:      "Fixes #" + itoa(issue),
			Draft:       true,
		})
	}
	return q
}

func orchestrationRunningQueue(c MachineContext) []actions.PendingAction {
	issue := c.Issue.Number
	if needsParentInit(c) {
		return []actions.PendingAction{
			updateStatus(issue, "In progress"),
			runClaude(issue, actions.RunClaudeOrchestrate, c),
			{Kind: actions.KindReconcileSubIssues, IssueNumber: issue},
		}
	}
	return []actions.PendingAction{
		appendHistory(issue, "", "Orchestration check: phases in progress"),
	}
}

func appendHistory(issue int, phase, message string) actions.PendingAction {
	return actions.PendingAction{Kind: actions.KindAppendHistory, IssueNumber: issue, Phase: phase, Message: message}
}

func updateStatus(issue int, status string) actions.PendingAction {
	return actions.PendingAction{Kind: actions.KindUpdateProjectStatus, IssueNumber: issue, Status: status}
}

func runClaude(issue int, kind actions.RunClaudeKind, c MachineContext) actions.PendingAction {
	return actions.PendingAction{
		Kind:          actions.KindRunClaude,
		IssueNumber:   issue,
		RunClaudeKind: kind,
		PromptVars:    map[string]string{"owner": c.Owner, "repo": c.Repo},
	}
}

func prNumber(c MachineContext) int {
	if c.PR == nil {
		return 0
	}
	return c.PR.Number
}

func branchName(c MachineContext) string {
	if c.Issue.IsSubIssue && c.ParentIssue != nil {
		phase := c.CurrentPhase
		return "claude/issue/" + itoa(c.ParentIssue.Number) + "/phase-" + itoa(phase)
	}
	return "claude/issue/" + itoa(c.Issue.Number)
}

// Phase returns the current sub-issue's phase label for history rows,
// empty for standalone issues.
func (c MachineContext) Phase() string {
	if c.CurrentPhase == 0 {
		return ""
	}
	return "Phase " + itoa(c.CurrentPhase)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

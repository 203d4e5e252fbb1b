package machine

// Guards are pure predicates over MachineContext (spec.md §4.5 "Key
// guards"). Each is named after its spec.md counterpart so the Run
// switch reads as a direct transcription of the detection order.

func isAlreadyDone(c MachineContext) bool {
	return c.Issue.ProjectStatus == "Done" && c.PR != nil && c.PR.State == "MERGED"
}

func isBlocked(c MachineContext) bool {
	return c.Issue.ProjectStatus == "Blocked"
}

func isError(c MachineContext) bool {
	return c.Issue.ProjectStatus == "Error"
}

func isSubIssue(c MachineContext) bool {
	return c.Issue.IsSubIssue
}

func botAssigned(c MachineContext) bool {
	for _, a := range c.Issue.Assignees {
		if a == c.BotUsername {
			return true
		}
	}
	return false
}

func parentBotAssigned(c MachineContext) bool {
	if c.ParentIssue == nil {
		return false
	}
	for _, a := range c.ParentIssue.Assignees {
		if a == c.BotUsername {
			return true
		}
	}
	return false
}

func hasLabel(labels []string, name string) bool {
	for _, l := range labels {
		if l == name {
			return true
		}
	}
	return false
}

func triggeredByReset(c MachineContext) bool    { return c.Trigger == TriggerReset }
func triggeredByPivot(c MachineContext) bool    { return c.Trigger == TriggerPivot }
func triggeredByRetry(c MachineContext) bool    { return c.Trigger == TriggerRetry }
func triggeredByTriage(c MachineContext) bool   { return c.Trigger == TriggerTriage }
func triggeredByGroom(c MachineContext) bool    { return c.Trigger == TriggerGroom }
func triggeredByOrchestrate(c MachineContext) bool {
	return c.Trigger == TriggerOrchestrate || (c.Trigger == TriggerAssigned && c.Issue.HasSubIssues && !c.Issue.IsSubIssue)
}
func triggeredByPRReviewRequest(c MachineContext) bool { return c.Trigger == TriggerReviewRequested }
func triggeredByCI(c MachineContext) bool              { return c.Trigger == TriggerCI }
func triggeredByReview(c MachineContext) bool          { return c.Trigger == TriggerReview }
func triggeredByPRMerged(c MachineContext) bool        { return c.Trigger == TriggerPRMerged }
func triggeredByPRPush(c MachineContext) bool          { return c.Trigger == TriggerPRPush }
func triggeredByComment(c MachineContext) bool         { return c.Trigger == TriggerComment }
func triggeredByMergeQueueEntry(c MachineContext) bool { return c.Trigger == TriggerMergeQueueEntered }
func triggeredByDeployStage(c MachineContext) bool     { return c.Trigger == TriggerDeployStage }
func triggeredByDeployProd(c MachineContext) bool      { return c.Trigger == TriggerDeployProd }

func needsTriage(c MachineContext) bool {
	return !c.Issue.IsSubIssue && !hasLabel(c.Issue.Labels, "triaged")
}

func needsGrooming(c MachineContext) bool {
	return hasLabel(c.Issue.Labels, "triaged") && !hasLabel(c.Issue.Labels, "groomed")
}

func maxFailuresReached(c MachineContext) bool {
	return c.Issue.Failures >= c.MaxRetries
}

func todosDone(c MachineContext) bool {
	target := c.Issue
	if c.CurrentSubIssue != nil {
		target = *c.CurrentSubIssue
	}
	return target.UncheckedNonManual == 0
}

func ciPassed(c MachineContext) bool { return c.CIResult == CISuccess }
func ciFailed(c MachineContext) bool { return c.CIResult == CIFailure }

func readyForReview(c MachineContext) bool {
	return ciPassed(c) && todosDone(c)
}

func shouldContinueIterating(c MachineContext) bool {
	return ciFailed(c) && !maxFailuresReached(c)
}

func shouldBlock(c MachineContext) bool {
	return ciFailed(c) && maxFailuresReached(c)
}

func allPhasesDone(c MachineContext) bool {
	if !hasLabel(c.Issue.Labels, "groomed") {
		return false
	}
	for _, s := range c.SubIssues {
		if s.ProjectStatus != "Done" && s.State != "CLOSED" {
			return false
		}
	}
	return true
}

func needsParentInit(c MachineContext) bool {
	return c.Issue.HasSubIssues && (c.Issue.ProjectStatus == "" || c.Issue.ProjectStatus == "Backlog")
}

func subIssueCanIterate(c MachineContext) bool {
	return c.Issue.IsSubIssue && botAssigned(c) && parentBotAssigned(c)
}

func hasPendingTodos(c MachineContext) bool {
	return c.Issue.UncheckedNonManual > 0
}

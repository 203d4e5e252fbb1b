package machine

import "github.com/nopo-automation/issuebot/internal/actions"

// Run resolves a MachineContext to exactly one State and the ordered
// PendingAction queue that reconciles the world to it (spec.md §4.5).
// Run is pure: for a fixed MachineContext, repeated calls are
// byte-identical (spec.md §8 property 1).
func Run(c MachineContext) Result {
	state := resolve(c)
	return Result{State: state, Actions: buildQueue(state, c)}
}

func resolve(c MachineContext) State {
	switch {
	case isAlreadyDone(c):
		return StateDone
	case isBlocked(c):
		return StateAlreadyBlocked
	case isError(c):
		return StateError
	case isSubIssue(c) && !subIssueCanIterate(c):
		return StateSubIssueIdle
	case triggeredByReset(c):
		return StateResetting
	case triggeredByPivot(c):
		return StatePivoting
	case triggeredByRetry(c):
		return StateIterating
	case triggeredByTriage(c) || needsTriage(c):
		return StateTriaging
	case triggeredByGroom(c) || needsGrooming(c):
		return StateGrooming
	case triggeredByOrchestrate(c):
		if allPhasesDone(c) {
			return StateOrchestrationComplete
		}
		return StateOrchestrationRunning
	case triggeredByPRReviewRequest(c):
		switch c.CIResult {
		case CISuccess:
			return StatePRReviewing
		case CIFailure:
			return StatePRReviewSkipped
		default:
			return StatePRReviewAssigned
		}
	case triggeredByCI(c):
		switch {
		case shouldBlock(c):
			return StateBlocked
		case shouldContinueIterating(c):
			return StateIteratingFix
		case readyForReview(c):
			return StateReviewing
		default:
			return StateIterating
		}
	case triggeredByReview(c):
		switch c.ReviewDecision {
		case ReviewApproved:
			return StateAwaitingMerge
		case ReviewChangesRequested:
			return StateIterating
		default: // COMMENTED or unknown: stays in review
			return StateReviewing
		}
	case triggeredByPRMerged(c):
		if c.ParentIssue != nil {
			return StateOrchestrationRunning
		}
		return StateDone
	case triggeredByPRPush(c):
		return StatePRPush
	case triggeredByComment(c):
		return StateCommenting
	case triggeredByMergeQueueEntry(c):
		if c.CIResult == CIFailure {
			return StateMergeQueueFailureLogging
		}
		return StateMergeQueueLogging
	case triggeredByDeployStage(c):
		if c.CIResult == CIFailure {
			return StateDeployedStageFailureLogging
		}
		return StateDeployedStageLogging
	case triggeredByDeployProd(c):
		if c.CIResult == CIFailure {
			return StateDeployedProdFailureLogging
		}
		return StateDeployedProdLogging
	default:
		if c.Issue.HasSubIssues {
			if allPhasesDone(c) {
				return StateOrchestrationComplete
			}
			return StateOrchestrationRunning
		}
		if !c.Issue.IsSubIssue && botAssigned(c) {
			switch {
			case shouldBlock(c):
				return StateBlocked
			case shouldContinueIterating(c):
				return StateIteratingFix
			case readyForReview(c):
				return StateReviewing
			case !hasPendingTodos(c):
				return StateInvalidIteration
			}
		}
		return StateIterating
	}
}

// AllowedSuccessors lists the states Run may legitimately resolve to
// immediately after s's action queue has been applied and the machine
// is re-entered (spec.md §8 property 2). Pseudo-transient states expect
// another dispatch (Orchestrator.retrigger); their successor set is
// intentionally broad since the next context depends on what the
// queue's actions actually observed upstream.
func AllowedSuccessors(s State) []State {
	switch s {
	case StateTriaging:
		return []State{StateGrooming, StateTriaging}
	case StateGrooming:
		return []State{StateOrchestrationRunning, StateIterating, StateGrooming}
	case StateIterating, StateIteratingFix:
		return []State{StateIterating, StateIteratingFix, StateReviewing, StateBlocked}
	case StateReviewing:
		return []State{StateAwaitingMerge, StateIterating, StateIteratingFix, StateReviewing, StatePRReviewAssigned}
	case StateAwaitingMerge:
		return []State{StateOrchestrationRunning, StateDone, StateAwaitingMerge}
	case StateOrchestrationRunning:
		return []State{StateOrchestrationRunning, StateOrchestrationComplete}
	case StateOrchestrationComplete:
		return []State{StateDone}
	case StateResetting:
		return []State{StateTriaging}
	case StatePivoting:
		return []State{StateAlreadyBlocked, StatePivoting}
	case StateBlocked:
		return []State{StateAlreadyBlocked}
	default:
		return []State{s}
	}
}

// emptyActions is returned by leaf states that perform no reconciliation
// of their own (pure observation states).
var emptyActions = []actions.PendingAction{}

// Package machine implements the State Machine (spec.md §4.5): a pure,
// deterministic function from a MachineContext to a resolved State and
// an ordered PendingAction queue. It performs no I/O.
package machine

import "github.com/nopo-automation/issuebot/internal/actions"

// Trigger is the synthetic event that started this DETECT pass
// (spec.md §4.3, §4.4's job→trigger table).
type Trigger string

const (
	TriggerTriage               Trigger = "issue-triage"
	TriggerGroom                Trigger = "issue-groom"
	TriggerAssigned             Trigger = "issue-assigned"
	TriggerReset                Trigger = "issue-reset"
	TriggerPivot                Trigger = "issue-pivot"
	TriggerComment              Trigger = "issue-comment"
	TriggerRetry                Trigger = "retry"
	TriggerCI                   Trigger = "workflow-run-completed"
	TriggerReview               Trigger = "pr-response"
	TriggerReviewApproved       Trigger = "pr-review-approved"
	TriggerReviewRequested      Trigger = "pr-review-requested"
	TriggerPRMerged             Trigger = "pr-merged"
	TriggerPRPush               Trigger = "pr-push"
	TriggerMergeQueueEntered    Trigger = "merge-queue-entered"
	TriggerOrchestrate          Trigger = "orchestrate"
	TriggerDeployStage          Trigger = "deploy-stage"
	TriggerDeployProd           Trigger = "deploy-prod"
)

// CIResult mirrors spec.md §3's MachineContext.ciResult domain.
type CIResult string

const (
	CINone      CIResult = ""
	CISuccess   CIResult = "success"
	CIFailure   CIResult = "failure"
	CICancelled CIResult = "cancelled"
	CISkipped   CIResult = "skipped"
)

// ReviewDecision mirrors spec.md §3's MachineContext.reviewDecision domain.
type ReviewDecision string

const (
	ReviewNone             ReviewDecision = ""
	ReviewApproved         ReviewDecision = "APPROVED"
	ReviewChangesRequested ReviewDecision = "CHANGES_REQUESTED"
	ReviewCommented        ReviewDecision = "COMMENTED"
)

// IssueView is the minimal issue-shaped data the machine needs, kept
// independent of internal/issuedata so this package stays pure and
// dependency-free beyond internal/actions.
type IssueView struct {
	Number               int
	State                string // OPEN, CLOSED
	ProjectStatus        string // canonicalized; "Ready" already mapped to "In progress" by the loader
	Iteration            int
	Failures             int
	Assignees            []string
	Labels               []string
	HasSubIssues         bool
	UncheckedNonManual   int
	IsSubIssue           bool
}

// PRView is the minimal PR-shaped data the machine needs.
type PRView struct {
	Number  int
	State   string // OPEN, MERGED, CLOSED
	IsDraft bool
}

// MachineContext is the State Machine's sole input (spec.md §3),
// immutable once built.
type MachineContext struct {
	Trigger           Trigger
	Owner             string
	Repo              string
	Issue             IssueView
	ParentIssue       *IssueView
	CurrentSubIssue   *IssueView
	SubIssues         []IssueView
	CurrentPhase      int
	TotalPhases       int
	PR                *PRView
	HasPR             bool
	CIResult          CIResult
	ReviewDecision    ReviewDecision
	Branch            string
	HasBranch         bool
	CommentContext    string
	MaxRetries        int
	BotUsername       string
	ReviewerUsername  string
	PivotDescription  string
	FailedSubIssue    int
}

// State is one of the hierarchical state chart's leaves (spec.md §4.5).
type State string

const (
	StateDetecting                   State = "detecting"
	StateDone                        State = "done"
	StateAlreadyBlocked              State = "alreadyBlocked"
	StateError                       State = "error"
	StateSubIssueIdle                State = "subIssueIdle"
	StateResetting                   State = "resetting"
	StatePivoting                    State = "pivoting"
	StateIterating                   State = "iterating"
	StateIteratingFix                State = "iteratingFix"
	StateTriaging                    State = "triaging"
	StateGrooming                    State = "grooming"
	StateOrchestrating               State = "orchestrating"
	StateOrchestrationRunning        State = "orchestrationRunning"
	StateOrchestrationComplete       State = "orchestrationComplete"
	StatePRReviewing                 State = "prReviewing"
	StatePRReviewAssigned            State = "prReviewAssigned"
	StatePRReviewSkipped             State = "prReviewSkipped"
	StateProcessingCI                State = "processingCI"
	StateBlocked                     State = "blocked"
	StateReviewing                   State = "reviewing"
	StateProcessingReview            State = "processingReview"
	StateAwaitingMerge               State = "awaitingMerge"
	StateProcessingMerge             State = "processingMerge"
	StatePRPush                      State = "prPush"
	StateCommenting                  State = "commenting"
	StateMergeQueueLogging           State = "mergeQueueLogging"
	StateMergeQueueFailureLogging    State = "mergeQueueFailureLogging"
	StateDeployedStageLogging        State = "deployedStageLogging"
	StateDeployedStageFailureLogging State = "deployedStageFailureLogging"
	StateDeployedProdLogging         State = "deployedProdLogging"
	StateDeployedProdFailureLogging  State = "deployedProdFailureLogging"
	StateInvalidIteration            State = "invalidIteration"
)

// Result is Run's output: the resolved state and the ordered action
// queue that reconciles the world to it.
type Result struct {
	State   State
	Actions []actions.PendingAction
}

// Package actions defines the tagged-union PendingAction type and the
// catalog of action kinds the State Machine emits and the Action Runner
// executes (spec.md §4.6).
package actions

// Kind discriminates the action catalog of spec.md §4.6.
type Kind string

const (
	KindRunClaude              Kind = "runClaude"
	KindApplyTriageOutput      Kind = "applyTriageOutput"
	KindApplyGroomingOutput    Kind = "applyGroomingOutput"
	KindApplyIterationOutput   Kind = "applyIterationOutput"
	KindApplyReviewOutput      Kind = "applyReviewOutput"
	KindApplyPrResponseOutput  Kind = "applyPrResponseOutput"
	KindReconcileSubIssues     Kind = "reconcileSubIssues"
	KindUpdateProjectStatus    Kind = "updateProjectStatus"
	KindIncrementIteration     Kind = "incrementIteration"
	KindClearFailures          Kind = "clearFailures"
	KindRecordFailure          Kind = "recordFailure"
	KindAppendHistory          Kind = "appendHistory"
	KindCreateBranch           Kind = "createBranch"
	KindCreatePR               Kind = "createPR"
	KindMarkPRReady            Kind = "markPRReady"
	KindConvertPRToDraft       Kind = "convertPRToDraft"
	KindRequestReviewer        Kind = "requestReviewer"
	KindRemoveReviewer         Kind = "removeReviewer"
	KindUnassignUser           Kind = "unassignUser"
	KindAddAssignees           Kind = "addAssignees"
	KindCloseIssue             Kind = "closeIssue"
	KindResetIssue             Kind = "resetIssue"
	KindRemoveFromProject      Kind = "removeFromProject"
	KindAddComment             Kind = "addComment"
	KindAddReaction            Kind = "addReaction"
)

// RunClaudeKind is the sub-discriminator for runClaude actions
// (spec.md §4.6's "kind" field on the runClaude action).
type RunClaudeKind string

const (
	RunClaudeTriage       RunClaudeKind = "triage"
	RunClaudeGrooming     RunClaudeKind = "grooming"
	RunClaudeIterate      RunClaudeKind = "iterate"
	RunClaudeRetry        RunClaudeKind = "retry"
	RunClaudeReview       RunClaudeKind = "review"
	RunClaudePRResponse   RunClaudeKind = "prResponse"
	RunClaudeComment      RunClaudeKind = "comment"
	RunClaudePivot        RunClaudeKind = "pivot"
	RunClaudeOrchestrate  RunClaudeKind = "orchestrate"
	RunClaudeDiscussion   RunClaudeKind = "discussion"
)

// PendingAction is the tagged union spec.md §3 and §9 call for: one
// struct with a Kind discriminator and every kind's inputs present as
// optional fields, rather than an interface hierarchy. Exhaustiveness
// over Kind is checked by the runner's switch statement at review time;
// callers only ever populate the fields that kind declares.
type PendingAction struct {
	Kind           Kind
	IdempotencyKey string
	Fatal          bool

	IssueNumber int
	ParentIssue int

	// runClaude
	RunClaudeKind RunClaudeKind
	PromptVars    map[string]string
	MockOutputs   map[string]string

	// updateProjectStatus
	Status string

	// appendHistory
	Phase     string
	Message   string
	SHA       string
	RunLink   string

	// recordFailure
	FailureKind string

	// createBranch / createPR
	BranchName string
	BaseBranch string
	PRTitle    string
	PRBody     string
	Draft      bool

	// markPRReady / convertPRToDraft / requestReviewer / removeReviewer
	PRNumber int
	Username string

	// unassignUser / addAssignees
	Usernames []string

	// addComment
	CommentBody string

	// addReaction
	CommentID string
	Reaction  string
}

// New returns a PendingAction of the given kind for the given issue,
// the common case for every action (spec.md §4.6: "Each carries the
// minimal, serializable input for its executor").
func New(kind Kind, issueNumber int) PendingAction {
	return PendingAction{Kind: kind, IssueNumber: issueNumber}
}

// Package router implements the Event Router (spec.md §4.4): a pure
// function from a raw repository event to a routing decision. It has no
// knowledge of the state machine and performs no I/O.
package router

// EventKind discriminates the event-payload shapes this router accepts.
// RawEvent is a flat tagged union keyed by Kind rather than a Go
// interface hierarchy, per spec.md §9's guidance to avoid open class
// hierarchies; Route switches exhaustively over Kind.
type EventKind string

const (
	KindIssueOpened              EventKind = "issue_opened"
	KindIssueEdited              EventKind = "issue_edited"
	KindIssueLabeled             EventKind = "issue_labeled"
	KindIssueUnlabeled           EventKind = "issue_unlabeled"
	KindIssueAssigned            EventKind = "issue_assigned"
	KindIssueClosed              EventKind = "issue_closed"
	KindIssueComment             EventKind = "issue_comment"
	KindPRPush                   EventKind = "pr_push"
	KindWorkflowRunCompleted     EventKind = "workflow_run_completed"
	KindPRReviewRequested        EventKind = "pr_review_requested"
	KindPRReviewSubmitted        EventKind = "pr_review_submitted"
	KindMergeGroupEntered        EventKind = "merge_group_entered"
	KindDiscussionCreated        EventKind = "discussion_created"
	KindDiscussionComment        EventKind = "discussion_comment"
	KindWorkflowDispatch         EventKind = "workflow_dispatch"
)

// Reserved bot identities the router treats as automated authors for
// skip rule 5 and for distinguishing Claude-authored review activity
// from human activity.
const (
	BotUsername         = "nopo-bot"
	ReviewerBotUsername = "nopo-reviewer"
)

var botAuthors = map[string]bool{
	BotUsername:           true,
	ReviewerBotUsername:   true,
	"claude[bot]":         true,
	"github-actions[bot]": true,
}

// IsBotAuthor reports whether login is one of the reserved automated
// identities (spec.md §4.4 universal skip rule 5).
func IsBotAuthor(login string) bool {
	return botAuthors[login]
}

// RawEvent is the router's sole input: the upstream payload normalized
// into the fields every routing rule needs, plus eventName/resourceNumber
// verbatim as spec.md §6 requires. Fields not relevant to Kind are left
// zero-valued.
type RawEvent struct {
	Kind         EventKind
	EventName    string // verbatim upstream event name, e.g. "issues", "pull_request"
	Action       string // verbatim upstream action, e.g. "opened", "edited"
	SenderLogin  string

	// Issue/PR resource identity.
	ResourceNumber    int
	Title             string
	Labels            []string
	Body              string
	Assignees         []string
	ParentIssueNumber *int // non-nil when the resource is a sub-issue
	HasSubIssues      bool
	HasMainStateMarker bool

	// issue_labeled/unlabeled
	LabelChanged string

	// issue_assigned
	AssigneeLogin string

	// issue_closed
	ClosedIsSubIssue bool

	// issue_comment / discussion_comment
	CommentID   string
	CommentBody string

	// PR fields.
	PRNumber     int
	PRIsDraft    bool
	PRApproved   bool
	PRBranch     string // head ref
	PRBaseBranch string
	PRBody       string // used to resolve "Fixes #N" linked issue
	LinkedIssueNumber        int
	LinkedIssueIsTestAutomation bool

	// pr_push
	CICommitSHA string
	CIRunURL    string

	// workflow_run_completed
	CIResult       string // success, failure, cancelled, skipped
	WorkflowBranch string

	// pr_review_submitted / pr_review_requested
	ReviewState    string // approved, changes_requested, commented
	ReviewerLogin  string
	RequestedReviewer string

	// merge_group_entered
	MergeGroupHeadRef string

	// discussion
	DiscussionNumber int

	// workflow_dispatch
	DispatchResourceNumber int

	// TriggerTypeOverride, when non-empty, wins over the router's own
	// job→trigger mapping (spec.md §4.4 final paragraph).
	TriggerTypeOverride string
}

// RoutingDecision is the router's sole output (spec.md §3, §6).
type RoutingDecision struct {
	Job               string
	ResourceType      string // issue, pr, discussion
	ResourceNumber    int
	ParentIssue       int
	CommentID         string
	ContextRecord     map[string]string
	Skip              bool
	SkipReason        string
	ConcurrencyGroup  string
	CancelInProgress  bool
	Trigger           string
	ReactionToAdd     string // eyes, rocket; empty if none
}

func skip(reason string) RoutingDecision {
	return RoutingDecision{Skip: true, SkipReason: reason}
}

// Package issuedata defines the IssueData aggregate (spec.md §3) and the
// repository interface used to fetch and persist it. The concrete fetch
// and persist implementation lives in internal/ghclient; this package is
// transport-agnostic and depends only on internal/markdown.
package issuedata

import (
	"context"

	"github.com/nopo-automation/issuebot/internal/markdown"
)

// IssueState is the upstream open/closed state of an issue or PR.
type IssueState string

const (
	StateOpen   IssueState = "OPEN"
	StateClosed IssueState = "CLOSED"
)

// PRState is the upstream state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "OPEN"
	PRStateMerged PRState = "MERGED"
	PRStateClosed PRState = "CLOSED"
)

// ProjectStatus is the single-select "Status" project-board field, in
// its canonical (read-side) form. "Ready" is canonicalized to
// "In progress" on read and denormalized back on write (spec.md §4.3,
// §9 open question 1).
type ProjectStatus string

const (
	StatusNone        ProjectStatus = ""
	StatusBacklog     ProjectStatus = "Backlog"
	StatusTriaged     ProjectStatus = "Triaged"
	StatusGroomed     ProjectStatus = "Groomed"
	StatusInProgress  ProjectStatus = "In progress"
	StatusReady       ProjectStatus = "Ready" // upstream write-side synonym for StatusInProgress
	StatusInReview    ProjectStatus = "In review"
	StatusBlocked     ProjectStatus = "Blocked"
	StatusDone        ProjectStatus = "Done"
	StatusError       ProjectStatus = "Error"
)

// CanonicalizeStatus maps the upstream "Ready" value to "In progress"
// for machine consumption. All other values pass through unchanged.
func CanonicalizeStatus(s ProjectStatus) ProjectStatus {
	if s == StatusReady {
		return StatusInProgress
	}
	return s
}

// DenormalizeStatus maps "In progress" back to the upstream "Ready"
// value on write. All other values pass through unchanged.
func DenormalizeStatus(s ProjectStatus) ProjectStatus {
	if s == StatusInProgress {
		return StatusReady
	}
	return s
}

// Review is a single PR review.
type Review struct {
	ID        string
	Author    string
	State     string // APPROVED, CHANGES_REQUESTED, COMMENTED, DISMISSED
	SubmittedAt string
}

// CIStatus is the combined-status/check-run conclusion for a PR's head
// commit, used as the ciResult fallback (spec.md §4.3 step 3) when the
// triggering event itself carried none.
type CIStatus string

const (
	CIStatusNone      CIStatus = ""
	CIStatusSuccess   CIStatus = "success"
	CIStatusFailure   CIStatus = "failure"
	CIStatusCancelled CIStatus = "cancelled"
	CIStatusSkipped   CIStatus = "skipped"
)

// PullRequest is the linked-PR shape of spec.md §3.
type PullRequest struct {
	Number  int
	State   PRState
	IsDraft bool
	Title   string
	HeadRef string
	BaseRef string
	Labels  []string
	Reviews []Review
	CI      CIStatus
}

// Comment is a single issue or PR comment.
type Comment struct {
	ID        string
	Author    string
	Body      string
	CreatedAt string
}

// Issue is the shared shape for the primary issue, its parent, and each
// sub-issue (spec.md §3). Sub-issues omit ParentIssueNumber is only
// non-nil on sub-issues; SubIssues is only populated on the primary
// issue and is empty on parent/sub-issue snapshots.
type Issue struct {
	Number            int
	Title             string
	BodyAST           *markdown.Node
	RawBody           string
	State             IssueState
	ProjectStatus     ProjectStatus
	Iteration         int
	Failures          int
	Assignees         []string
	Labels            []string
	HasSubIssues      bool
	SubIssues         []Issue
	Comments          []Comment
	Branch            string
	PR                *PullRequest
	ParentIssueNumber *int
}

// IsSubIssue reports whether this issue is a sub-issue of another
// (spec.md §3 invariant: "An issue is a sub-issue iff
// parentIssueNumber ≠ null").
func (i Issue) IsSubIssue() bool {
	return i.ParentIssueNumber != nil
}

// HasLabel reports label membership case-insensitively.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if equalFold(l, name) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// IssueData is the aggregate root fetched and persisted once per
// dispatch (spec.md §3).
type IssueData struct {
	Owner       string
	Repo        string
	Number      int
	Issue       Issue
	ParentIssue *Issue // sub-issues omitted on the parent snapshot
}

// FetchOptions controls ParseIssue's fetch behavior (spec.md §4.2).
type FetchOptions struct {
	ProjectNumber int
	BotUsername   string
	FetchPRs      bool
	FetchParent   bool
}

// PersistFunc applies the diff between the originally fetched snapshot
// and next, writing only what changed (spec.md §4.2: "Persist is
// idempotent and applies only the diff between snapshot and next").
type PersistFunc func(ctx context.Context, next IssueData) error

// Repository is the single primitive the Context Loader and Action
// Runner consume to read and write issue state (spec.md §4.2).
type Repository interface {
	// ParseIssue fetches and materializes an IssueData aggregate and
	// returns a Persist closure bound to the originally fetched
	// snapshot.
	ParseIssue(ctx context.Context, owner, repo string, number int, opts FetchOptions) (IssueData, PersistFunc, error)

	// Supplementary capabilities consumed by executors (spec.md §4.2).
	AddSubIssueToParent(ctx context.Context, parentNumber int, childNumber int) error
	SetLabels(ctx context.Context, number int, add, remove []string) error
	ListComments(ctx context.Context, number int) ([]Comment, error)
	UpdateProjectFields(ctx context.Context, number int, fields map[string]string) error
	MarkPRReady(ctx context.Context, prNumber int) error
	RequestReviewer(ctx context.Context, prNumber int, username string) error
	CreateIssue(ctx context.Context, title, body string, labels []string, parentNumber *int) (int, error)
	AddAssignees(ctx context.Context, number int, usernames []string) error
	RemoveAssignees(ctx context.Context, number int, usernames []string) error
}

package cli

import (
	"context"
	"sync"

	"github.com/nopo-automation/issuebot/internal/issuedata"
)

// fixtureVCS is a minimal in-memory runner.VCSCapability backing the
// fixtures harness: it serves one IssueData snapshot and records
// whatever persist() is ultimately called with, without touching
// GitHub. Mutating calls are no-ops beyond bookkeeping the harness
// checks against.
type fixtureVCS struct {
	mu        sync.Mutex
	data      issuedata.IssueData
	nextIssue int
	persist_  *issuedata.IssueData
}

func newFixtureVCS(data issuedata.IssueData) *fixtureVCS {
	return &fixtureVCS{data: data, nextIssue: data.Number}
}

func (f *fixtureVCS) persisted() *issuedata.IssueData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persist_
}

func (f *fixtureVCS) ParseIssue(ctx context.Context, owner, repo string, number int, opts issuedata.FetchOptions) (issuedata.IssueData, issuedata.PersistFunc, error) {
	f.mu.Lock()
	snapshot := f.data
	f.mu.Unlock()

	return snapshot, func(ctx context.Context, next issuedata.IssueData) error {
		f.mu.Lock()
		f.persist_ = &next
		f.mu.Unlock()
		return nil
	}, nil
}

func (f *fixtureVCS) AddSubIssueToParent(ctx context.Context, parentNumber, childNumber int) error {
	return nil
}
func (f *fixtureVCS) SetLabels(ctx context.Context, number int, add, remove []string) error {
	return nil
}
func (f *fixtureVCS) ListComments(ctx context.Context, number int) ([]issuedata.Comment, error) {
	return nil, nil
}
func (f *fixtureVCS) UpdateProjectFields(ctx context.Context, number int, fields map[string]string) error {
	return nil
}
func (f *fixtureVCS) MarkPRReady(ctx context.Context, prNumber int) error { return nil }
func (f *fixtureVCS) RequestReviewer(ctx context.Context, prNumber int, username string) error {
	return nil
}
func (f *fixtureVCS) CreateIssue(ctx context.Context, title, body string, labels []string, parentNumber *int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIssue++
	return f.nextIssue, nil
}
func (f *fixtureVCS) AddAssignees(ctx context.Context, number int, usernames []string) error {
	return nil
}
func (f *fixtureVCS) RemoveAssignees(ctx context.Context, number int, usernames []string) error {
	return nil
}
func (f *fixtureVCS) CreateBranch(ctx context.Context, branchName, baseBranch string) error {
	return nil
}
func (f *fixtureVCS) CreatePR(ctx context.Context, title, body, head, base string, draft bool) (int, error) {
	return 1, nil
}
func (f *fixtureVCS) ConvertPRToDraft(ctx context.Context, prNumber int) error { return nil }
func (f *fixtureVCS) RemoveReviewer(ctx context.Context, prNumber int, username string) error {
	return nil
}
func (f *fixtureVCS) CloseIssue(ctx context.Context, number int) error               { return nil }
func (f *fixtureVCS) AddComment(ctx context.Context, number int, body string) error  { return nil }
func (f *fixtureVCS) AddReaction(ctx context.Context, commentID, reaction string) error {
	return nil
}
func (f *fixtureVCS) RemoveFromProject(ctx context.Context, number int) error { return nil }

package orchestrator

import (
	"context"
	"testing"

	"github.com/nopo-automation/issuebot/internal/actions"
	"github.com/nopo-automation/issuebot/internal/issuedata"
	"github.com/nopo-automation/issuebot/internal/markdown"
	"github.com/nopo-automation/issuebot/internal/router"
	"github.com/nopo-automation/issuebot/internal/runner"
)

type fakeVCS struct {
	data       issuedata.IssueData
	persisted  *issuedata.IssueData
	reactions  []string
	nextIssue  int
}

func (f *fakeVCS) ParseIssue(ctx context.Context, owner, repo string, number int, opts issuedata.FetchOptions) (issuedata.IssueData, issuedata.PersistFunc, error) {
	return f.data, func(ctx context.Context, next issuedata.IssueData) error {
		f.persisted = &next
		return nil
	}, nil
}

func (f *fakeVCS) AddSubIssueToParent(ctx context.Context, parentNumber, childNumber int) error {
	return nil
}
func (f *fakeVCS) SetLabels(ctx context.Context, number int, add, remove []string) error { return nil }
func (f *fakeVCS) ListComments(ctx context.Context, number int) ([]issuedata.Comment, error) {
	return nil, nil
}
func (f *fakeVCS) UpdateProjectFields(ctx context.Context, number int, fields map[string]string) error {
	return nil
}
func (f *fakeVCS) MarkPRReady(ctx context.Context, prNumber int) error { return nil }
func (f *fakeVCS) RequestReviewer(ctx context.Context, prNumber int, username string) error {
	return nil
}
func (f *fakeVCS) CreateIssue(ctx context.Context, title, body string, labels []string, parentNumber *int) (int, error) {
	f.nextIssue++
	return f.nextIssue, nil
}
func (f *fakeVCS) AddAssignees(ctx context.Context, number int, usernames []string) error { return nil }
func (f *fakeVCS) RemoveAssignees(ctx context.Context, number int, usernames []string) error {
	return nil
}
func (f *fakeVCS) CreateBranch(ctx context.Context, branchName, baseBranch string) error { return nil }
func (f *fakeVCS) CreatePR(ctx context.Context, title, body, head, base string, draft bool) (int, error) {
	return 1, nil
}
func (f *fakeVCS) ConvertPRToDraft(ctx context.Context, prNumber int) error          { return nil }
func (f *fakeVCS) RemoveReviewer(ctx context.Context, prNumber int, username string) error { return nil }
func (f *fakeVCS) CloseIssue(ctx context.Context, number int) error                 { return nil }
func (f *fakeVCS) AddComment(ctx context.Context, number int, body string) error    { return nil }
func (f *fakeVCS) AddReaction(ctx context.Context, commentID, reaction string) error {
	f.reactions = append(f.reactions, reaction)
	return nil
}
func (f *fakeVCS) RemoveFromProject(ctx context.Context, number int) error { return nil }

func TestDispatchSkipsBotAuthoredEvent(t *testing.T) {
	vcs := &fakeVCS{}
	ev := router.RawEvent{Kind: router.KindIssueOpened, SenderLogin: router.BotUsername, ResourceNumber: 1}
	res, err := Dispatch(context.Background(), Params{Owner: "acme", Repo: "widgets", Event: ev, VCS: vcs, Agent: runner.MockInvoker{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Skipped {
		t.Fatalf("expected skip, got %+v", res)
	}
}

func TestDispatchTriagesNewIssueAndPersists(t *testing.T) {
	body, _ := markdown.Parse("## Todos\n\n- [ ] write code\n")
	vcs := &fakeVCS{data: issuedata.IssueData{
		Owner: "acme", Repo: "widgets", Number: 5,
		Issue: issuedata.Issue{Number: 5, Title: "Something broke", BodyAST: body, State: issuedata.StateOpen},
	}}
	agent := runner.MockInvoker{Outputs: map[actions.RunClaudeKind]string{
		actions.RunClaudeTriage: `{"labels":["bug"],"summary":"a real bug"}`,
	}}

	ev := router.RawEvent{Kind: router.KindIssueOpened, SenderLogin: "someone", ResourceNumber: 5, Title: "Something broke"}
	res, err := Dispatch(context.Background(), Params{
		Owner: "acme", Repo: "widgets", Event: ev, VCS: vcs, Agent: agent,
		BotUsername: "nopo-bot", MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Skipped {
		t.Fatalf("expected a real dispatch, got skip: %s", res.SkipReason)
	}
	if !res.Execution.Success {
		t.Fatalf("expected executor success, got %+v", res.Execution.Results)
	}
	if vcs.persisted == nil {
		t.Fatal("expected persist to be called")
	}
	if !vcs.persisted.Issue.HasLabel("bug") || !vcs.persisted.Issue.HasLabel("triaged") {
		t.Fatalf("expected triaged+bug labels persisted, got %v", vcs.persisted.Issue.Labels)
	}
}

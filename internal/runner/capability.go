package runner

import (
	"context"

	"github.com/nopo-automation/issuebot/internal/actions"
	"github.com/nopo-automation/issuebot/internal/issuedata"
)

// AgentInvoker is the Agent capability of spec.md §6: "invoke(kind,
// promptVars) → structured output matching the kind's declared output
// schema." Container/CLI plumbing for the Agent process itself is an
// external collaborator (spec.md §1); this interface is the only
// boundary the runner depends on, so tests and real invocations share
// one code path through ExtractSignal/ParseOutput.
type AgentInvoker interface {
	// Invoke runs the Agent for kind and returns its raw stdout. The
	// runner extracts the SignalPrefix block itself, matching how a
	// real CLI invocation's stdout is parsed.
	Invoke(ctx context.Context, kind actions.RunClaudeKind, promptVars map[string]string) (string, error)
}

// MockInvoker wraps a real AgentInvoker with mockOutputs overrides
// keyed by RunClaudeKind (spec.md §6: "Must support a mockOutputs
// override keyed by kind ... for tests"). When mockOutputs supplies an
// entry for the requested kind, that JSON is returned verbatim
// (wrapped in SignalPrefix) instead of invoking the underlying agent.
type MockInvoker struct {
	Outputs map[actions.RunClaudeKind]string
	Real    AgentInvoker
}

func (m MockInvoker) Invoke(ctx context.Context, kind actions.RunClaudeKind, promptVars map[string]string) (string, error) {
	if raw, ok := m.Outputs[kind]; ok {
		return SignalPrefix + " " + raw, nil
	}
	if m.Real == nil {
		return "", nil
	}
	return m.Real.Invoke(ctx, kind, promptVars)
}

// VCSCapability is the full VCS capability of spec.md §6: issue CRUD,
// labels, assignees, comments and reactions, pull-request state
// mutations, git refs, and project-board field/item mutations.
// issuedata.Repository covers the subset the Context Loader and the
// diff-based persist path need; the runner additionally needs the
// direct-effect mutations persist never diffs (branches, PRs, review
// requests, comments, reactions, project-item removal).
type VCSCapability interface {
	issuedata.Repository

	CreateBranch(ctx context.Context, branchName, baseBranch string) error
	CreatePR(ctx context.Context, title, body, head, base string, draft bool) (int, error)
	ConvertPRToDraft(ctx context.Context, prNumber int) error
	RemoveReviewer(ctx context.Context, prNumber int, username string) error
	CloseIssue(ctx context.Context, number int) error
	AddComment(ctx context.Context, number int, body string) error
	AddReaction(ctx context.Context, commentID, reaction string) error
	RemoveFromProject(ctx context.Context, number int) error
}

package runner

import (
	"encoding/json"
	"fmt"

	"github.com/nopo-automation/issuebot/internal/actions"
)

// TriageOutput is the runClaude(kind=triage) output schema (spec.md
// §4.6's applyTriageOutput action).
type TriageOutput struct {
	Labels        []string `json:"labels,omitempty"`
	NeedsInfo     bool     `json:"needs_info,omitempty"`
	Questions     []string `json:"questions,omitempty"`
	AffectedAreas []string `json:"affected_areas,omitempty"`
	Summary       string   `json:"summary"`
}

// GroomingSubIssueSpec is one sub-issue `reconcileSubIssues` reconciles
// against the parent's existing sub-issue graph.
type GroomingSubIssueSpec struct {
	Phase int    `json:"phase"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// GroomingOutput is the runClaude(kind=grooming) output schema.
type GroomingOutput struct {
	SubIssues []GroomingSubIssueSpec `json:"sub_issues,omitempty"`
	Todos     []string                `json:"todos,omitempty"`
	Summary   string                  `json:"summary"`
}

// IterationOutput is the runClaude(kind=iterate|retry) output schema.
type IterationOutput struct {
	Summary       string   `json:"summary"`
	TodosChecked  []string `json:"todos_checked,omitempty"`
	CommitSHA     string   `json:"commit_sha,omitempty"`
	PRTitle       string   `json:"pr_title,omitempty"`
	PRBody        string   `json:"pr_body,omitempty"`
	Blocked       bool     `json:"blocked,omitempty"`
	BlockedReason string   `json:"blocked_reason,omitempty"`
}

// ReviewOutput is the runClaude(kind=review) output schema.
type ReviewOutput struct {
	Approved         bool     `json:"approved,omitempty"`
	ChangesRequested bool     `json:"changes_requested,omitempty"`
	Comments         []string `json:"comments,omitempty"`
	Summary          string   `json:"summary"`
}

// PRResponseOutput is the runClaude(kind=prResponse) output schema.
type PRResponseOutput struct {
	Summary      string   `json:"summary"`
	CommitSHA    string   `json:"commit_sha,omitempty"`
	TodosChecked []string `json:"todos_checked,omitempty"`
}

// CommentOutput is the runClaude(kind=comment|discussion*) output
// schema: a reply to post back.
type CommentOutput struct {
	Reply string `json:"reply"`
}

// PivotOutput is the runClaude(kind=pivot) output schema.
type PivotOutput struct {
	Description string `json:"description"`
}

// OrchestrateOutput is the runClaude(kind=orchestrate) output schema.
type OrchestrateOutput struct {
	Summary string `json:"summary"`
}

// ParseOutput unmarshals jsonStr into the struct matching kind, per
// spec.md §6's "parse stdout as the kind's output schema".
func ParseOutput(kind actions.RunClaudeKind, jsonStr string) (interface{}, error) {
	var out interface{}
	switch kind {
	case actions.RunClaudeTriage:
		out = &TriageOutput{}
	case actions.RunClaudeGrooming:
		out = &GroomingOutput{}
	case actions.RunClaudeIterate, actions.RunClaudeRetry:
		out = &IterationOutput{}
	case actions.RunClaudeReview:
		out = &ReviewOutput{}
	case actions.RunClaudePRResponse:
		out = &PRResponseOutput{}
	case actions.RunClaudeComment, actions.RunClaudeDiscussion:
		out = &CommentOutput{}
	case actions.RunClaudePivot:
		out = &PivotOutput{}
	case actions.RunClaudeOrchestrate:
		out = &OrchestrateOutput{}
	default:
		return nil, fmt.Errorf("runner: unknown runClaude kind %q", kind)
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return nil, fmt.Errorf("runner: parse %s output: %w", kind, err)
	}
	return out, nil
}

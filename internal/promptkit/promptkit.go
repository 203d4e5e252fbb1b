// Package promptkit resolves a runClaude kind and its promptVars into
// the text sent to the Agent capability. It is built the way teacher
// internal/prompt.LoadSystemPrompt embeds a fallback document and
// internal/template.RenderPrompt substitutes {{var}} placeholders,
// generalized from one system prompt to one template per kind.
package promptkit

import (
	_ "embed"
	"fmt"

	"github.com/nopo-automation/issuebot/internal/actions"
	"github.com/nopo-automation/issuebot/internal/template"
)

//go:embed templates/triage.md
var triageTemplate string

//go:embed templates/grooming.md
var groomingTemplate string

//go:embed templates/iterate.md
var iterateTemplate string

//go:embed templates/retry.md
var retryTemplate string

//go:embed templates/review.md
var reviewTemplate string

//go:embed templates/pr_response.md
var prResponseTemplate string

//go:embed templates/comment.md
var commentTemplate string

//go:embed templates/pivot.md
var pivotTemplate string

//go:embed templates/orchestrate.md
var orchestrateTemplate string

//go:embed templates/discussion.md
var discussionTemplate string

var templates = map[actions.RunClaudeKind]string{
	actions.RunClaudeTriage:      triageTemplate,
	actions.RunClaudeGrooming:    groomingTemplate,
	actions.RunClaudeIterate:     iterateTemplate,
	actions.RunClaudeRetry:       retryTemplate,
	actions.RunClaudeReview:      reviewTemplate,
	actions.RunClaudePRResponse:  prResponseTemplate,
	actions.RunClaudeComment:     commentTemplate,
	actions.RunClaudePivot:       pivotTemplate,
	actions.RunClaudeOrchestrate: orchestrateTemplate,
	actions.RunClaudeDiscussion:  discussionTemplate,
}

// Build renders the prompt for kind, substituting vars via
// template.RenderPrompt. Unknown kinds return an error; the Action
// Runner never invokes the Agent with a kind outside actions.RunClaudeKind's
// catalog.
func Build(kind actions.RunClaudeKind, vars map[string]string) (string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("promptkit: no template for kind %q", kind)
	}
	return template.RenderPrompt(tmpl, vars), nil
}

// Package agentbridge adapts internal/agent's adapters (claudecode,
// codex, aider) into the runner.AgentInvoker boundary (spec.md §6).
// The Agent process itself and its container/CLI plumbing are external
// collaborators out of this core's scope (spec.md §1); this package is
// the thin, swappable seam between the two, built the same way teacher
// internal/controller drove an agent.Agent's BuildEnv/BuildCommand pair
// but executing the CLI directly on the host instead of inside Docker.
package agentbridge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/nopo-automation/issuebot/internal/actions"
	"github.com/nopo-automation/issuebot/internal/agent"
	"github.com/nopo-automation/issuebot/internal/promptkit"
	"github.com/nopo-automation/issuebot/internal/routing"
)

// Bridge invokes one agent.Agent adapter as a subprocess named Binary,
// passing BuildCommand's args and BuildEnv's variables, and returns the
// process's combined stdout+stderr for the runner to extract a
// CLAUDE_ISSUE_BOT: signal from.
//
// Router is nil-safe: a nil Router (or one with no configured default
// or overrides) leaves every invocation on Agent/Binary unchanged. When
// configured, Invoke consults it per RunClaudeKind and can both swap in
// a different registered agent.Agent and set a per-call model override,
// so "triage" and "iterate" can run cheaper/pricier models or different
// adapters entirely without the orchestrator knowing about routing.
type Bridge struct {
	Agent       agent.Agent
	Binary      string
	GitHubToken string
	WorkDir     string
	Router      *routing.Router

	resolved map[string]agent.Agent
}

// New builds a Bridge around a registered agent.Agent (spec.md §6's
// Agent capability: "invoke(kind, promptVars) -> structured output").
// name is looked up via agent.Get, so any adapter init() has registered
// (claude-code, codex, aider) can back the bridge. router may be nil.
func New(name, binary, githubToken, workDir string, router *routing.Router) (*Bridge, error) {
	a, err := agent.Get(name)
	if err != nil {
		return nil, fmt.Errorf("agentbridge: %w", err)
	}
	return &Bridge{Agent: a, Binary: binary, GitHubToken: githubToken, WorkDir: workDir, Router: router}, nil
}

// Invoke implements runner.AgentInvoker.
func (b *Bridge) Invoke(ctx context.Context, kind actions.RunClaudeKind, promptVars map[string]string) (string, error) {
	prompt, err := promptkit.Build(kind, promptVars)
	if err != nil {
		return "", err
	}

	a, modelOverride := b.agentForKind(kind)

	session := &agent.Session{
		ID:          fmt.Sprintf("%s-%s", promptVars["owner"]+"/"+promptVars["repo"], kind),
		Repository:  promptVars["owner"] + "/" + promptVars["repo"],
		WorkDir:     b.WorkDir,
		GitHubToken: b.GitHubToken,
		Prompt:      prompt,
		ActiveTask:  promptVars["issue_number"],
	}
	if modelOverride != "" {
		session.IterationContext = &agent.IterationContext{
			Phase:         string(kind),
			ModelOverride: modelOverride,
		}
	}

	args := a.BuildCommand(session, 1)
	env := a.BuildEnv(session, 1)

	cmd := exec.CommandContext(ctx, b.Binary, args...)
	cmd.Dir = b.WorkDir
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if provider, ok := a.(agent.StdinPromptProvider); ok {
		if stdinPrompt := provider.GetStdinPrompt(session, 1); stdinPrompt != "" {
			cmd.Stdin = bytes.NewBufferString(stdinPrompt)
		}
	}

	runErr := cmd.Run()
	combined := stdout.String() + "\n" + stderr.String()
	if runErr != nil {
		return combined, fmt.Errorf("agentbridge: %s invocation failed: %w", a.Name(), runErr)
	}
	return combined, nil
}

// agentForKind resolves which agent.Agent and model override to use for
// kind, consulting Router when configured. A routed adapter name that
// differs from b.Agent is looked up via the agent registry and cached;
// an unknown adapter name falls back to b.Agent rather than failing the
// dispatch over a routing config typo.
func (b *Bridge) agentForKind(kind actions.RunClaudeKind) (agent.Agent, string) {
	if b.Router == nil || !b.Router.IsConfigured() {
		return b.Agent, ""
	}

	cfg := b.Router.ModelForPhase(strings.ToLower(string(kind)))
	if cfg.Adapter == "" || cfg.Adapter == b.Agent.Name() {
		return b.Agent, cfg.Model
	}

	if b.resolved == nil {
		b.resolved = make(map[string]agent.Agent)
	}
	if a, ok := b.resolved[cfg.Adapter]; ok {
		return a, cfg.Model
	}
	a, err := agent.Get(cfg.Adapter)
	if err != nil {
		return b.Agent, cfg.Model
	}
	b.resolved[cfg.Adapter] = a
	return a, cfg.Model
}

package agentbridge

import (
	"context"
	"testing"

	"github.com/nopo-automation/issuebot/internal/agent"
	"github.com/nopo-automation/issuebot/internal/routing"
)

type echoAgent struct {
	name           string
	output         string
	lastModelUsed  string
	recordedModels bool
}

func (e *echoAgent) Name() string           { return e.name }
func (e *echoAgent) ContainerImage() string { return "" }
func (e *echoAgent) BuildEnv(s *agent.Session, iteration int) map[string]string {
	return nil
}
func (e *echoAgent) BuildCommand(s *agent.Session, iteration int) []string {
	if e.recordedModels && s.IterationContext != nil {
		e.lastModelUsed = s.IterationContext.ModelOverride
	}
	return []string{"-c", "printf '%s' \"$0\"", e.output}
}
func (e *echoAgent) BuildPrompt(s *agent.Session, iteration int) string { return s.Prompt }
func (e *echoAgent) ParseOutput(exitCode int, stdout, stderr string) (*agent.IterationResult, error) {
	return &agent.IterationResult{ExitCode: exitCode, Success: exitCode == 0}, nil
}
func (e *echoAgent) Validate() error { return nil }

func TestInvokeRunsAgentAndReturnsOutput(t *testing.T) {
	b := &Bridge{Agent: &echoAgent{name: "echo-agent", output: "CLAUDE_ISSUE_BOT: {\"reply\":\"hi\"}"}, Binary: "/bin/sh"}
	out, err := b.Invoke(context.Background(), "comment", map[string]string{"owner": "acme", "repo": "widgets", "issue_number": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty output")
	}
}

func TestInvokeWithNilRouterUsesBaseAgent(t *testing.T) {
	base := &echoAgent{name: "echo-agent", output: "ok", recordedModels: true}
	b := &Bridge{Agent: base, Binary: "/bin/sh"}
	if _, err := b.Invoke(context.Background(), "iterate", map[string]string{"owner": "a", "repo": "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.lastModelUsed != "" {
		t.Errorf("expected no model override without a router, got %q", base.lastModelUsed)
	}
}

func TestInvokeAppliesRoutedModelOverride(t *testing.T) {
	base := &echoAgent{name: "echo-agent", output: "ok", recordedModels: true}
	router := routing.NewRouter(&routing.PhaseRouting{
		Default: routing.ModelConfig{Model: "default-model"},
		Overrides: map[string]routing.ModelConfig{
			"triage": {Model: "cheap-model"},
		},
	})
	b := &Bridge{Agent: base, Binary: "/bin/sh", Router: router}

	if _, err := b.Invoke(context.Background(), "triage", map[string]string{"owner": "a", "repo": "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.lastModelUsed != "cheap-model" {
		t.Errorf("model override = %q, want %q", base.lastModelUsed, "cheap-model")
	}

	if _, err := b.Invoke(context.Background(), "review", map[string]string{"owner": "a", "repo": "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.lastModelUsed != "default-model" {
		t.Errorf("model override = %q, want %q", base.lastModelUsed, "default-model")
	}
}

func TestAgentForKindFallsBackOnUnknownAdapter(t *testing.T) {
	base := &echoAgent{name: "echo-agent"}
	router := routing.NewRouter(&routing.PhaseRouting{
		Overrides: map[string]routing.ModelConfig{
			"review": {Adapter: "nonexistent-adapter", Model: "m"},
		},
	})
	b := &Bridge{Agent: base, Router: router}

	a, model := b.agentForKind("review")
	if a != base {
		t.Error("expected fallback to base agent when routed adapter is unregistered")
	}
	if model != "m" {
		t.Errorf("model = %q, want %q", model, "m")
	}
}

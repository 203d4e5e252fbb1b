// Package orchestrator implements the top-level Orchestrator (spec.md
// §4.7): the seven-step pipeline that turns one raw repository event
// into a routed, loaded, resolved, executed, and persisted dispatch. It
// owns no state of its own; it wires router → loader → machine →
// runner → persist and reports what happened.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/nopo-automation/issuebot/internal/loader"
	"github.com/nopo-automation/issuebot/internal/machine"
	"github.com/nopo-automation/issuebot/internal/memory"
	"github.com/nopo-automation/issuebot/internal/observability"
	"github.com/nopo-automation/issuebot/internal/router"
	"github.com/nopo-automation/issuebot/internal/runner"
)

// retriggerStates are the pseudo-transient states spec.md §4.7 step 7
// names as expecting another dispatch to follow.
var retriggerStates = map[machine.State]bool{
	machine.StateTriaging:             true,
	machine.StateResetting:            true,
	machine.StateOrchestrationRunning: true,
	machine.StatePRReviewAssigned:     true,
}

// Params bundles one dispatch's inputs.
type Params struct {
	Owner string
	Repo  string
	Event router.RawEvent

	BotUsername      string
	ReviewerUsername string
	MaxRetries       int
	PivotDescription string

	VCS    runner.VCSCapability
	Agent  runner.AgentInvoker
	DryRun bool

	// WorkDir is the Agent's checkout directory. When non-empty, the
	// runner persists cross-iteration memory signals
	// (internal/memory) alongside it under .issuebot/memory.json so
	// they survive separate dispatch invocations against the same
	// branch. Empty disables memory context entirely (fixtures, dry
	// runs with no durable checkout).
	WorkDir      string
	MemoryConfig memory.Config

	// Tracer records each runClaude invocation for observability. Nil
	// leaves tracing a no-op.
	Tracer observability.Tracer
}

// Result is the Orchestrator's output, spec.md §4.7 step 7 and §6's
// "The Orchestrator returns {state, retrigger, executionResult,
// skipReason?, error?}".
type Result struct {
	Skipped    bool
	SkipReason string

	State     machine.State
	Execution runner.ExecutionResult
	Retrigger bool
}

// Dispatch runs one event through the full pipeline.
func Dispatch(ctx context.Context, p Params) (Result, error) {
	dec := router.Route(p.Event)
	if dec.Skip {
		return Result{Skipped: true, SkipReason: dec.SkipReason}, nil
	}

	if dec.ReactionToAdd != "" && dec.CommentID != "" {
		// Best-effort ack; a failed reaction must not abort the dispatch.
		_ = p.VCS.AddReaction(ctx, dec.CommentID, dec.ReactionToAdd)
	}

	ev := loader.EventContext{
		Trigger:          machine.Trigger(dec.Trigger),
		CIResult:         ciResultFromEvent(p.Event.CIResult),
		ReviewDecision:   reviewDecisionFromEvent(p.Event.ReviewState),
		CommentContext:   p.Event.CommentBody,
		PivotDescription: p.PivotDescription,
		MaxRetries:       p.MaxRetries,
		BotUsername:      p.BotUsername,
		ReviewerUsername: p.ReviewerUsername,
	}

	issueNumber := dec.ResourceNumber
	if dec.ParentIssue != 0 && issueNumber == 0 {
		issueNumber = dec.ParentIssue
	}

	mc, data, persist, err := loader.Load(ctx, p.VCS, p.Owner, p.Repo, issueNumber, ev)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: load context for #%d: %w", issueNumber, err)
	}

	resolved := machine.Run(mc)

	run := runner.New(p.VCS, p.Agent, p.DryRun)
	run.Tracer = p.Tracer
	if p.WorkDir != "" {
		mem := memory.NewStore(p.WorkDir, p.MemoryConfig)
		if err := mem.Load(); err != nil {
			return Result{}, fmt.Errorf("orchestrator: load memory for #%d: %w", issueNumber, err)
		}
		run.Memory = mem
	}
	exec := run.Execute(ctx, resolved.Actions, data)

	if !p.DryRun {
		if err := persist(ctx, *data); err != nil {
			return Result{State: resolved.State, Execution: exec}, fmt.Errorf("orchestrator: persist #%d: %w", issueNumber, err)
		}
	}

	return Result{
		State:     resolved.State,
		Execution: exec,
		Retrigger: retriggerStates[resolved.State],
	}, nil
}

func ciResultFromEvent(s string) machine.CIResult {
	switch s {
	case "success":
		return machine.CISuccess
	case "failure":
		return machine.CIFailure
	case "cancelled":
		return machine.CICancelled
	case "skipped":
		return machine.CISkipped
	default:
		return machine.CINone
	}
}

func reviewDecisionFromEvent(s string) machine.ReviewDecision {
	switch s {
	case "approved":
		return machine.ReviewApproved
	case "changes_requested":
		return machine.ReviewChangesRequested
	case "commented":
		return machine.ReviewCommented
	default:
		return machine.ReviewNone
	}
}

package runner

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nopo-automation/issuebot/internal/actions"
	"github.com/nopo-automation/issuebot/internal/issuedata"
	"github.com/nopo-automation/issuebot/internal/markdown"
	"github.com/nopo-automation/issuebot/internal/memory"
	"github.com/nopo-automation/issuebot/internal/observability"
	"github.com/nopo-automation/issuebot/internal/security"
)

// scrubber redacts secret-shaped substrings from agent-produced text
// before it leaves the process boundary (comments, PR bodies), in case
// an Agent's stdout echoes a credential from its environment.
var scrubber = security.NewScrubber()

// Status is the per-action outcome spec.md §7's ExecutionResult reports.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusNotRun  Status = "notRun"
)

// ActionResult is one entry of spec.md §7's
// `ExecutionResult.actions[]`.
type ActionResult struct {
	Action actions.PendingAction
	Status Status
	Error  string
}

// ExecutionResult is the Action Runner's output (spec.md §7).
type ExecutionResult struct {
	Results    []ActionResult
	Success    bool
	FatalIndex *int
}

// Runner executes a pending-action queue against a VCS capability and
// an Agent capability, mutating an issuedata.IssueData in place
// (spec.md §4.6's "Action Runner loop").
type Runner struct {
	VCS    VCSCapability
	Agent  AgentInvoker
	DryRun bool

	// Memory carries KEY_FACT/DECISION/STEP_PENDING/... signals an
	// Agent invocation emits across iterations of the same issue. Nil
	// disables memory context injection entirely (e.g. fixture runs).
	Memory *memory.Store

	// Tracer records each runClaude invocation as a generation. Nil
	// falls back to a no-op tracer.
	Tracer observability.Tracer

	// pendingOutput/pendingKind carry the most recent runClaude
	// result to the apply* action immediately following it in the
	// queue, mirroring how every queue in spec.md §4.5 pairs the two.
	pendingOutput interface{}
	pendingKind   actions.RunClaudeKind

	// claudeCalls counts runClaude invocations within this Execute
	// call, the iteration index Memory.Update keys entries by.
	claudeCalls int
}

// New builds a Runner. agent may be a MockInvoker for fixture-driven
// tests (spec.md §6's mockOutputs override).
func New(vcs VCSCapability, agent AgentInvoker, dryRun bool) *Runner {
	return &Runner{VCS: vcs, Agent: agent, DryRun: dryRun}
}

// Execute runs queue in order against data, stopping at the first
// fatal-flagged failure (spec.md §4.6's Action Runner loop: "Never
// re-run the machine mid-queue").
func (r *Runner) Execute(ctx context.Context, queue []actions.PendingAction, data *issuedata.IssueData) ExecutionResult {
	result := ExecutionResult{Success: true}
	aborted := false

	for idx, action := range queue {
		if aborted {
			result.Results = append(result.Results, ActionResult{Action: action, Status: StatusNotRun})
			continue
		}

		err := r.execute(ctx, action, data)
		switch {
		case err == nil:
			result.Results = append(result.Results, ActionResult{Action: action, Status: StatusOK})
		case action.Fatal:
			i := idx
			result.FatalIndex = &i
			result.Success = false
			result.Results = append(result.Results, ActionResult{Action: action, Status: StatusFailed, Error: err.Error()})
			aborted = true
		default:
			result.Success = false
			result.Results = append(result.Results, ActionResult{Action: action, Status: StatusFailed, Error: err.Error()})
		}
	}
	return result
}

func (r *Runner) execute(ctx context.Context, action actions.PendingAction, data *issuedata.IssueData) error {
	if r.DryRun && action.Kind != actions.KindRunClaude {
		return nil
	}

	switch action.Kind {
	case actions.KindRunClaude:
		return r.runClaude(ctx, action)

	case actions.KindApplyTriageOutput:
		out, ok := r.pendingOutput.(*TriageOutput)
		if !ok {
			return fmt.Errorf("runner: applyTriageOutput with no preceding triage output")
		}
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		applyTriageOutput(issue, out)
		return nil

	case actions.KindApplyGroomingOutput:
		out, ok := r.pendingOutput.(*GroomingOutput)
		if !ok {
			return fmt.Errorf("runner: applyGroomingOutput with no preceding grooming output")
		}
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		applyGroomingOutput(issue, out)
		return nil

	case actions.KindApplyIterationOutput:
		out, ok := r.pendingOutput.(*IterationOutput)
		if !ok {
			return fmt.Errorf("runner: applyIterationOutput with no preceding iteration output")
		}
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		applyIterationOutput(issue, out)
		return nil

	case actions.KindApplyReviewOutput:
		out, ok := r.pendingOutput.(*ReviewOutput)
		if !ok {
			return fmt.Errorf("runner: applyReviewOutput with no preceding review output")
		}
		if out.Summary != "" {
			if err := r.VCS.AddComment(ctx, action.IssueNumber, scrubber.Scrub(out.Summary)); err != nil {
				return err
			}
		}
		return nil

	case actions.KindApplyPrResponseOutput:
		out, ok := r.pendingOutput.(*PRResponseOutput)
		if !ok {
			return fmt.Errorf("runner: applyPrResponseOutput with no preceding prResponse output")
		}
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		applyPrResponseOutput(issue, out)
		return nil

	case actions.KindReconcileSubIssues:
		out, ok := r.pendingOutput.(*GroomingOutput)
		if !ok {
			return fmt.Errorf("runner: reconcileSubIssues with no preceding grooming output")
		}
		return r.reconcileSubIssues(ctx, data, out)

	case actions.KindUpdateProjectStatus:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.ProjectStatus = issuedata.ProjectStatus(action.Status)
		issue.SetBodyStatus(issue.ProjectStatus)
		return nil

	case actions.KindIncrementIteration:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.Iteration++
		return nil

	case actions.KindClearFailures:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.Failures = 0
		return nil

	case actions.KindRecordFailure:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.Failures++
		return nil

	case actions.KindAppendHistory:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.AppendHistory(markdown.HistoryAppend{
			Phase:   action.Phase,
			Action:  action.Message,
			SHA:     action.SHA,
			RunLink: action.RunLink,
		})
		return nil

	case actions.KindCreateBranch:
		return r.VCS.CreateBranch(ctx, action.BranchName, action.BaseBranch)

	case actions.KindCreatePR:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		number, err := r.VCS.CreatePR(ctx, action.PRTitle, scrubber.Scrub(action.PRBody), action.BranchName, action.BaseBranch, action.Draft)
		if err != nil {
			return err
		}
		issue.PR = &issuedata.PullRequest{
			Number:  number,
			State:   issuedata.PRStateOpen,
			IsDraft: action.Draft,
			Title:   action.PRTitle,
			HeadRef: action.BranchName,
			BaseRef: action.BaseBranch,
		}
		return nil

	case actions.KindMarkPRReady:
		if err := r.VCS.MarkPRReady(ctx, action.PRNumber); err != nil {
			return err
		}
		if issue, err := findIssue(data, action.IssueNumber); err == nil && issue.PR != nil {
			issue.PR.IsDraft = false
		}
		return nil

	case actions.KindConvertPRToDraft:
		if err := r.VCS.ConvertPRToDraft(ctx, action.PRNumber); err != nil {
			return err
		}
		if issue, err := findIssue(data, action.IssueNumber); err == nil && issue.PR != nil {
			issue.PR.IsDraft = true
		}
		return nil

	case actions.KindRequestReviewer:
		return r.VCS.RequestReviewer(ctx, action.PRNumber, action.Username)

	case actions.KindRemoveReviewer:
		return r.VCS.RemoveReviewer(ctx, action.PRNumber, action.Username)

	case actions.KindUnassignUser:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		removeAssignee(issue, action.Username)
		return nil

	case actions.KindAddAssignees:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.Assignees = append(issue.Assignees, action.Usernames...)
		return nil

	case actions.KindCloseIssue:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.State = issuedata.StateClosed
		return nil

	case actions.KindResetIssue:
		issue, err := findIssue(data, action.IssueNumber)
		if err != nil {
			return err
		}
		issue.SetTodos(nil)
		issue.SetQuestions(nil)
		return nil

	case actions.KindRemoveFromProject:
		return r.VCS.RemoveFromProject(ctx, action.IssueNumber)

	case actions.KindAddComment:
		return r.VCS.AddComment(ctx, action.IssueNumber, scrubber.Scrub(action.CommentBody))

	case actions.KindAddReaction:
		return r.VCS.AddReaction(ctx, action.CommentID, action.Reaction)

	default:
		return fmt.Errorf("runner: unhandled action kind %q", action.Kind)
	}
}

// runClaude invokes the Agent (or its mock override) and stashes the
// parsed output for the apply* action that follows in the queue
// (spec.md §4.6's runClaude row: "parse stdout as the kind's output
// schema").
func (r *Runner) runClaude(ctx context.Context, action actions.PendingAction) error {
	r.claudeCalls++
	taskID := strconv.Itoa(action.IssueNumber)
	var memCtx string
	if r.Memory != nil {
		memCtx = r.Memory.BuildContext(taskID)
	}
	promptVars := withMemoryContext(action.PromptVars, memCtx)

	tracer := r.tracer()
	trace := tracer.StartTrace(taskID, observability.TraceOptions{Workflow: string(action.RunClaudeKind)})
	span := tracer.StartPhase(trace, string(action.RunClaudeKind), observability.SpanOptions{Iteration: r.claudeCalls})

	var raw string
	var err error
	if len(action.MockOutputs) > 0 {
		raw = SignalPrefix + " " + buildMockJSON(action.MockOutputs)
	} else {
		raw, err = r.Agent.Invoke(ctx, action.RunClaudeKind, promptVars)
		if err != nil {
			tracer.EndPhase(span, "error", 0)
			tracer.CompleteTrace(trace, observability.CompleteOptions{Status: "failed"})
			return fmt.Errorf("runner: agent invocation failed: %w", err)
		}
	}
	tracer.RecordGeneration(span, observability.GenerationInput{
		Name:   string(action.RunClaudeKind),
		Output: raw,
		Status: "completed",
	})
	tracer.EndPhase(span, "completed", 0)
	tracer.CompleteTrace(trace, observability.CompleteOptions{Status: "completed"})

	if r.Memory != nil {
		if signals := memory.ParseSignals(raw); len(signals) > 0 {
			r.Memory.Update(signals, r.claudeCalls, taskID)
			if err := r.Memory.Save(); err != nil {
				return fmt.Errorf("runner: save memory: %w", err)
			}
		}
	}

	jsonStr, err := ExtractSignal(raw)
	if err != nil {
		return err
	}
	out, err := ParseOutput(action.RunClaudeKind, jsonStr)
	if err != nil {
		return err
	}
	r.pendingOutput = out
	r.pendingKind = action.RunClaudeKind
	return nil
}

// tracer returns r.Tracer, falling back to a no-op so callers that
// don't configure Langfuse don't need nil checks at every call site.
func (r *Runner) tracer() observability.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	return &observability.NoOpTracer{}
}

// withMemoryContext returns a copy of vars with memCtx attached under
// the promptkit variable name templates reference for accumulated
// cross-iteration context, leaving the caller's map untouched.
func withMemoryContext(vars map[string]string, memCtx string) map[string]string {
	out := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	out["memoryContext"] = memCtx
	return out
}

// buildMockJSON assembles a JSON object literal from a mockOutputs
// override, keys sorted for determinism. Each value is inserted as a
// raw JSON fragment rather than string-escaped, so a fixture can supply
// `"todos_checked": "[\"a\",\"b\"]"` to populate an array field.
func buildMockJSON(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%s", k, fields[k])
	}
	b.WriteByte('}')
	return b.String()
}

func removeAssignee(issue *issuedata.Issue, username string) {
	next := issue.Assignees[:0:0]
	for _, a := range issue.Assignees {
		if a != username {
			next = append(next, a)
		}
	}
	issue.Assignees = next
}

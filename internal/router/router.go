package router

import (
	"fmt"
	"regexp"
)

var phaseTitlePattern = regexp.MustCompile(`^\[Phase \d+\]`)

// jobToTrigger is the fixed job→trigger table of spec.md §4.4. A
// non-empty TriggerTypeOverride on the event always wins over this
// table.
var jobToTrigger = map[string]string{
	"issue-triage":         "issue-triage",
	"issue-groom":          "issue-groom",
	"issue-iterate":        "issue-assigned",
	"issue-orchestrate":    "issue-assigned",
	"issue-reset":          "issue-reset",
	"issue-pivot":          "issue-pivot",
	"issue-comment":        "issue-comment",
	"pr-push":              "pr-push",
	"pr-response":          "pr-response",
	"pr-human-response":    "pr-human-response",
	"pr-review-requested":  "pr-review-requested",
	"pr-review-approved":   "pr-review-approved",
	"merge-queue-logging":  "merge-queue-entered",
	"discussion-research":  "discussion-created",
	"discussion-summarize": "discussion-command",
	"discussion-plan":      "discussion-command",
	"discussion-complete":  "discussion-command",
}

// Route is the Event Router's sole entry point: a pure function from a
// raw repository event to exactly one RoutingDecision (spec.md §4.4).
func Route(e RawEvent) RoutingDecision {
	if dec, skipped := applyUniversalSkipRules(e); skipped {
		return dec
	}

	dec := routeByKind(e)
	if dec.Skip {
		return dec
	}

	if dec.Trigger == "" {
		if t, ok := jobToTrigger[dec.Job]; ok {
			dec.Trigger = t
		}
	}
	if e.TriggerTypeOverride != "" {
		dec.Trigger = e.TriggerTypeOverride
	}

	dec.ConcurrencyGroup, dec.CancelInProgress = concurrency(dec, e)
	return dec
}

func routeByKind(e RawEvent) RoutingDecision {
	switch e.Kind {
	case KindIssueOpened:
		return routeIssueOpened(e)
	case KindIssueEdited, KindIssueLabeled, KindIssueUnlabeled:
		return routeIssueEdited(e)
	case KindIssueAssigned:
		return routeIssueAssigned(e)
	case KindIssueClosed:
		return routeIssueClosed(e)
	case KindIssueComment:
		return routeIssueComment(e)
	case KindPRPush:
		return routePRPush(e)
	case KindWorkflowRunCompleted:
		return routeWorkflowRunCompleted(e)
	case KindPRReviewRequested:
		return routePRReviewRequested(e)
	case KindPRReviewSubmitted:
		return routePRReviewSubmitted(e)
	case KindMergeGroupEntered:
		return routeMergeGroupEntered(e)
	case KindDiscussionCreated:
		return RoutingDecision{Job: "discussion-research", ResourceType: "discussion", ResourceNumber: e.DiscussionNumber}
	case KindDiscussionComment:
		return routeDiscussionComment(e)
	case KindWorkflowDispatch:
		return routeWorkflowDispatch(e)
	default:
		return skip(fmt.Sprintf("unrecognized event kind %q", e.Kind))
	}
}

func isSubIssue(e RawEvent) bool {
	return e.ParentIssueNumber != nil
}

func routeIssueOpened(e RawEvent) RoutingDecision {
	if isSubIssue(e) || phaseTitlePattern.MatchString(e.Title) {
		return skip("Sub-issues and phase issues are not triaged")
	}
	return RoutingDecision{Job: "issue-triage", ResourceType: "issue", ResourceNumber: e.ResourceNumber}
}

func routeIssueEdited(e RawEvent) RoutingDecision {
	if isSubIssue(e) {
		return skip("Sub-issues are never triaged or groomed")
	}
	triaged := hasLabel(e.Labels, "triaged")
	groomed := hasLabel(e.Labels, "groomed")
	needsInfo := hasLabel(e.Labels, "needs-info")
	botAssigned := containsString(e.Assignees, BotUsername)

	if e.Kind == KindIssueUnlabeled && e.LabelChanged == "triaged" {
		triaged = false
	}

	if !triaged && !phaseTitlePattern.MatchString(e.Title) {
		return RoutingDecision{Job: "issue-triage", ResourceType: "issue", ResourceNumber: e.ResourceNumber}
	}

	if triaged && !groomed && !needsInfo && !botAssigned {
		return RoutingDecision{Job: "issue-groom", ResourceType: "issue", ResourceNumber: e.ResourceNumber}
	}

	if botAssigned {
		return routeAssignedWork(e)
	}

	return skip("No routable condition for issue edit")
}

func routeAssignedWork(e RawEvent) RoutingDecision {
	if isTerminalStatusLabel(e.Labels) {
		return skip("Project status is Done, Blocked, or Error")
	}
	if isSubIssue(e) {
		return RoutingDecision{
			Job:            "issue-iterate",
			ResourceType:   "issue",
			ResourceNumber: e.ResourceNumber,
			ParentIssue:    *e.ParentIssueNumber,
		}
	}
	if e.HasSubIssues || e.HasMainStateMarker {
		return RoutingDecision{Job: "issue-orchestrate", ResourceType: "issue", ResourceNumber: e.ResourceNumber}
	}
	return RoutingDecision{Job: "issue-iterate", ResourceType: "issue", ResourceNumber: e.ResourceNumber}
}

// isTerminalStatusLabel is a conservative stand-in for "project status ∈
// {Done, Blocked, Error}" at the router layer: the router only sees
// labels/assignment state, not project-board fields, so a dedicated
// "status:done"/"status:blocked"/"status:error" label convention (set
// alongside the board field by updateProjectStatus) is what it checks.
func isTerminalStatusLabel(labels []string) bool {
	return hasLabel(labels, "status:done") || hasLabel(labels, "status:blocked") || hasLabel(labels, "status:error")
}

func routeIssueAssigned(e RawEvent) RoutingDecision {
	if !hasLabel(e.Labels, "triaged") && !e.HasSubIssues && !e.HasMainStateMarker {
		return skip("Assignment requires triaged label, sub-issues, or a CLAUDE_MAIN_STATE marker")
	}
	return routeAssignedWork(e)
}

func routeIssueClosed(e RawEvent) RoutingDecision {
	if !isSubIssue(e) {
		return skip("Only sub-issue closure triggers orchestration")
	}
	return RoutingDecision{
		Job:            "issue-orchestrate",
		ResourceType:   "issue",
		ResourceNumber: *e.ParentIssueNumber,
		ContextRecord:  map[string]string{"closed_sub_issue": fmt.Sprintf("%d", e.ResourceNumber)},
	}
}

func routeIssueComment(e RawEvent) RoutingDecision {
	cmd, hasCmd := parseSlashCommand(e.CommentBody)
	if hasCmd {
		switch cmd.name {
		case "reset":
			return RoutingDecision{Job: "issue-reset", ResourceType: "issue", ResourceNumber: e.ResourceNumber, CommentID: e.CommentID, ReactionToAdd: "eyes"}
		case "pivot":
			target := e.ResourceNumber
			if isSubIssue(e) {
				target = *e.ParentIssueNumber
			}
			return RoutingDecision{
				Job:            "issue-pivot",
				ResourceType:   "issue",
				ResourceNumber: target,
				CommentID:      e.CommentID,
				ReactionToAdd:  "eyes",
				ContextRecord:  map[string]string{"pivot_description": cmd.arg},
			}
		case "implement", "continue", "lfg":
			return routeImplementCommand(e)
		}
	}
	if containsBareMention(e.CommentBody) {
		return RoutingDecision{Job: "issue-comment", ResourceType: "issue", ResourceNumber: e.ResourceNumber, CommentID: e.CommentID}
	}
	return skip("Comment carries no routable command or mention")
}

func routeImplementCommand(e RawEvent) RoutingDecision {
	if e.PRNumber != 0 {
		if e.PRIsDraft {
			return skip("Cannot act on a draft PR")
		}
		if e.PRApproved {
			return skip("PR is already approved")
		}
		job := "pr-human-response"
		if IsBotAuthor(e.ReviewerLogin) {
			job = "pr-response"
		}
		return RoutingDecision{Job: job, ResourceType: "pr", ResourceNumber: e.PRNumber, CommentID: e.CommentID, ReactionToAdd: "rocket"}
	}
	dec := routeAssignedWork(e)
	dec.CommentID = e.CommentID
	dec.ReactionToAdd = "rocket"
	return dec
}

func routePRPush(e RawEvent) RoutingDecision {
	if e.PRNumber == 0 {
		return skip("No linked PR for push event")
	}
	if e.LinkedIssueIsTestAutomation {
		return skip("Linked issue is test:automation")
	}
	return RoutingDecision{
		Job:            "pr-push",
		ResourceType:   "pr",
		ResourceNumber: e.PRNumber,
		ContextRecord: map[string]string{
			"ci_commit_sha": e.CICommitSHA,
			"ci_run_url":    e.CIRunURL,
		},
	}
}

func routeWorkflowRunCompleted(e RawEvent) RoutingDecision {
	if e.LinkedIssueIsTestAutomation {
		return skip("Linked issue is test:automation")
	}
	return RoutingDecision{
		Job:            "issue-iterate",
		ResourceType:   "issue",
		ResourceNumber: e.ResourceNumber,
		Trigger:        "workflow-run-completed",
		ContextRecord: map[string]string{
			"ci_result":      e.CIResult,
			"ci_run_url":     e.CIRunURL,
			"ci_commit_sha":  e.CICommitSHA,
			"trigger_type":   "workflow-run-completed",
		},
	}
}

func routePRReviewRequested(e RawEvent) RoutingDecision {
	if e.RequestedReviewer != BotUsername && e.RequestedReviewer != ReviewerBotUsername {
		return skip("Review not requested from a Claude identity")
	}
	if e.PRIsDraft {
		return skip("Cannot review a draft PR")
	}
	return RoutingDecision{Job: "pr-review-requested", ResourceType: "pr", ResourceNumber: e.PRNumber}
}

func routePRReviewSubmitted(e RawEvent) RoutingDecision {
	switch e.ReviewState {
	case "approved":
		if e.ReviewerLogin == ReviewerBotUsername {
			return RoutingDecision{Job: "pr-review-approved", ResourceType: "pr", ResourceNumber: e.PRNumber}
		}
		return skip("Approval from a non-reviewer identity")
	case "changes_requested", "commented":
		if IsBotAuthor(e.ReviewerLogin) {
			return RoutingDecision{Job: "pr-response", ResourceType: "pr", ResourceNumber: e.PRNumber}
		}
		return RoutingDecision{Job: "pr-human-response", ResourceType: "pr", ResourceNumber: e.PRNumber}
	default:
		return skip(fmt.Sprintf("unrecognized review state %q", e.ReviewState))
	}
}

func routeMergeGroupEntered(e RawEvent) RoutingDecision {
	prNum, ok := prNumberFromHeadRef(e.MergeGroupHeadRef)
	if !ok {
		return skip("Could not resolve PR number from head_ref")
	}
	linked, ok := linkedIssueFromPRBody(e.PRBody)
	if !ok {
		linked = e.LinkedIssueNumber
	}
	return RoutingDecision{
		Job:            "merge-queue-logging",
		ResourceType:   "pr",
		ResourceNumber: prNum,
		ContextRecord:  map[string]string{"linked_issue": fmt.Sprintf("%d", linked)},
	}
}

func routeDiscussionComment(e RawEvent) RoutingDecision {
	if IsBotAuthor(e.SenderLogin) {
		return skip("Bot-authored discussion comment ignored to prevent loops")
	}
	cmd, ok := parseSlashCommand(e.CommentBody)
	if !ok {
		return skip("Discussion comment carries no routable command")
	}
	switch cmd.name {
	case "summarize":
		return RoutingDecision{Job: "discussion-summarize", ResourceType: "discussion", ResourceNumber: e.DiscussionNumber}
	case "plan":
		return RoutingDecision{Job: "discussion-plan", ResourceType: "discussion", ResourceNumber: e.DiscussionNumber}
	case "complete", "lfg":
		return RoutingDecision{Job: "discussion-complete", ResourceType: "discussion", ResourceNumber: e.DiscussionNumber}
	case "research":
		return RoutingDecision{Job: "discussion-research", ResourceType: "discussion", ResourceNumber: e.DiscussionNumber}
	default:
		return skip(fmt.Sprintf("unrecognized discussion command %q", cmd.name))
	}
}

func routeWorkflowDispatch(e RawEvent) RoutingDecision {
	if e.DispatchResourceNumber == 0 {
		return skip("workflow_dispatch carries no resource number")
	}
	synthetic := e
	synthetic.ResourceNumber = e.DispatchResourceNumber
	return routeIssueAssigned(synthetic)
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func concurrency(dec RoutingDecision, e RawEvent) (group string, cancel bool) {
	switch dec.Job {
	case "pr-push", "pr-review-requested", "pr-review-approved", "pr-response", "pr-human-response":
		return fmt.Sprintf("claude-job-review-%d", dec.ResourceNumber), dec.Job == "pr-push"
	case "discussion-research", "discussion-summarize", "discussion-plan", "discussion-complete":
		return fmt.Sprintf("claude-job-discussion-%d", dec.ResourceNumber), false
	case "merge-queue-logging":
		return fmt.Sprintf("claude-job-review-%d", dec.ResourceNumber), false
	default:
		key := dec.ResourceNumber
		if dec.ParentIssue != 0 {
			key = dec.ParentIssue
		}
		return fmt.Sprintf("claude-job-issue-%d", key), false
	}
}

package router

import (
	"regexp"
	"strings"
)

// slashCommand is a parsed "/command rest-of-line" comment.
type slashCommand struct {
	name string
	arg  string
}

var slashCommandPattern = regexp.MustCompile(`(?m)^\s*/(\S+)\s*(.*)$`)

// parseSlashCommand extracts the first slash command in body, if any.
func parseSlashCommand(body string) (slashCommand, bool) {
	m := slashCommandPattern.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return slashCommand{}, false
	}
	return slashCommand{name: strings.ToLower(m[1]), arg: strings.TrimSpace(m[2])}, true
}

var mentionPattern = regexp.MustCompile(`(?i)@claude\b`)

func containsBareMention(body string) bool {
	return mentionPattern.MatchString(body)
}

var prReferencePattern = regexp.MustCompile(`(?i)\b(?:fixes|closes|resolves)\s+#(\d+)`)

// linkedIssueFromPRBody finds the first "Fixes/Closes/Resolves #N"
// reference in a PR body (spec.md §4.4 merge-queue routing,
// spec.md §4.6 createPR).
func linkedIssueFromPRBody(body string) (int, bool) {
	m := prReferencePattern.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return n, true
}

var prBranchRefPattern = regexp.MustCompile(`pr-(\d+)`)

// prNumberFromHeadRef parses the first "pr-(\d+)" token from a merge
// group's head_ref (spec.md §4.4 merge-group routing).
func prNumberFromHeadRef(headRef string) (int, bool) {
	m := prBranchRefPattern.FindStringSubmatch(headRef)
	if m == nil {
		return 0, false
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return n, true
}

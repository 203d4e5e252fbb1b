// Package runner implements the Action Runner (spec.md §4.6/§4.7/§7):
// it consumes the pending-action queue the state machine produces and
// performs the I/O each action needs, in order, with per-action
// idempotency and structured failure handling.
package runner

import (
	"fmt"
	"strings"
)

// SignalPrefix marks the structured-output block an Agent invocation
// emits in its stdout (spec.md §6's Agent capability: "parse stdout as
// the kind's output schema").
const SignalPrefix = "CLAUDE_ISSUE_BOT:"

// ExtractSignal finds the first SignalPrefix in output and returns the
// JSON object immediately following it.
func ExtractSignal(output string) (string, error) {
	idx := strings.Index(output, SignalPrefix)
	if idx == -1 {
		return "", fmt.Errorf("runner: no %s signal in agent output", SignalPrefix)
	}
	remainder := strings.TrimSpace(output[idx+len(SignalPrefix):])
	if !strings.HasPrefix(remainder, "{") {
		return "", fmt.Errorf("runner: %s signal not followed by a JSON object", SignalPrefix)
	}
	return extractJSONObject(remainder)
}

// extractJSONObject returns the shortest well-formed JSON object
// prefix of s, honoring string-quoted braces.
func extractJSONObject(s string) (string, error) {
	if len(s) == 0 || s[0] != '{' {
		return "", fmt.Errorf("runner: string does not start with {")
	}
	depth := 0
	inString := false
	escaped := false
	for i, c := range s {
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't count
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", fmt.Errorf("runner: incomplete JSON object in agent output")
}

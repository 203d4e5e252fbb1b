package issuedata

import (
	"regexp"
	"sort"
	"strconv"
)

var phaseTitlePattern = regexp.MustCompile(`^\[Phase (\d+)\]`)

// PhaseOf returns the phase number parsed from a "[Phase N] ..." title,
// and whether the title carried one at all.
func PhaseOf(title string) (int, bool) {
	m := phaseTitlePattern.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// OrderSubIssues sorts sub-issues by ascending phase number ("[Phase N]"
// prefix), breaking ties by issue number; entries with no phase number
// follow all phased entries, in number order (spec.md §3).
func OrderSubIssues(subIssues []Issue) []Issue {
	out := make([]Issue, len(subIssues))
	copy(out, subIssues)
	sort.SliceStable(out, func(i, j int) bool {
		pi, oki := PhaseOf(out[i].Title)
		pj, okj := PhaseOf(out[j].Title)
		switch {
		case oki && okj:
			if pi != pj {
				return pi < pj
			}
			return out[i].Number < out[j].Number
		case oki && !okj:
			return true
		case !oki && okj:
			return false
		default:
			return out[i].Number < out[j].Number
		}
	})
	return out
}

// CurrentSubIssue picks the first sub-issue (in phase order) that is
// still open and not Done (spec.md §4.3 step 5).
func CurrentSubIssue(subIssues []Issue) *Issue {
	for _, s := range OrderSubIssues(subIssues) {
		if s.State == StateOpen && s.ProjectStatus != StatusDone {
			cp := s
			return &cp
		}
	}
	return nil
}

// AllPhasesDone reports whether every sub-issue is Done or CLOSED
// (guard `allPhasesDone`, spec.md §4.5).
func AllPhasesDone(subIssues []Issue) bool {
	for _, s := range subIssues {
		if s.ProjectStatus != StatusDone && s.State != StateClosed {
			return false
		}
	}
	return true
}

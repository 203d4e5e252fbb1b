package ghclient

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/nopo-automation/issuebot/internal/issuedata"
)

// persist writes only the fields that differ between snapshot and next
// (spec.md §4.2: "Persist is idempotent and applies only the diff
// between snapshot and next"), for the primary issue and each
// sub-issue it carries.
func (c *Client) persist(ctx context.Context, snapshot, next issuedata.IssueData) error {
	if err := c.persistIssue(ctx, snapshot.Owner, snapshot.Repo, snapshot.Issue, next.Issue); err != nil {
		return err
	}
	bySnapshotNumber := make(map[int]issuedata.Issue, len(snapshot.Issue.SubIssues))
	for _, s := range snapshot.Issue.SubIssues {
		bySnapshotNumber[s.Number] = s
	}
	for _, nextSub := range next.Issue.SubIssues {
		prev, ok := bySnapshotNumber[nextSub.Number]
		if !ok {
			continue // new sub-issues are created via CreateIssue, not diffed here
		}
		if err := c.persistIssue(ctx, snapshot.Owner, snapshot.Repo, prev, nextSub); err != nil {
			return fmt.Errorf("sub-issue #%d: %w", nextSub.Number, err)
		}
	}
	return nil
}

func (c *Client) persistIssue(ctx context.Context, owner, repo string, prev, next issuedata.Issue) error {
	if prev.RawBody != next.RawBody {
		body := next.RawBody
		err := c.call(ctx, func() error {
			_, _, callErr := c.rest.Issues.Edit(ctx, owner, repo, next.Number, &github.IssueRequest{Body: &body})
			return callErr
		})
		if err != nil {
			return fmt.Errorf("ghclient: update body of #%d: %w", next.Number, err)
		}
	}

	if add, remove := diffStrings(prev.Labels, next.Labels); len(add) > 0 || len(remove) > 0 {
		if err := c.SetLabels(ctx, next.Number, add, remove); err != nil {
			return err
		}
	}

	if add, remove := diffStrings(prev.Assignees, next.Assignees); len(add) > 0 || len(remove) > 0 {
		if err := c.AddAssignees(ctx, next.Number, add); err != nil {
			return err
		}
		if err := c.RemoveAssignees(ctx, next.Number, remove); err != nil {
			return err
		}
	}

	if prev.State != next.State && next.State == issuedata.StateClosed {
		state := "closed"
		err := c.call(ctx, func() error {
			_, _, callErr := c.rest.Issues.Edit(ctx, owner, repo, next.Number, &github.IssueRequest{State: &state})
			return callErr
		})
		if err != nil {
			return fmt.Errorf("ghclient: close #%d: %w", next.Number, err)
		}
	}

	if prev.ProjectStatus != next.ProjectStatus && next.ProjectStatus != "" {
		if err := c.UpdateProjectFields(ctx, next.Number, map[string]string{"Status": string(next.ProjectStatus)}); err != nil {
			return err
		}
	}

	numericFields := map[string]string{}
	if prev.Iteration != next.Iteration {
		numericFields["Iteration"] = fmt.Sprintf("%d", next.Iteration)
	}
	if prev.Failures != next.Failures {
		numericFields["Failures"] = fmt.Sprintf("%d", next.Failures)
	}
	if len(numericFields) > 0 {
		if err := c.UpdateProjectFields(ctx, next.Number, numericFields); err != nil {
			return err
		}
	}

	return nil
}

// diffStrings returns elements present only in next (add) and only in
// prev (remove), treating both slices as unordered sets.
func diffStrings(prev, next []string) (add, remove []string) {
	prevSet := make(map[string]bool, len(prev))
	for _, s := range prev {
		prevSet[s] = true
	}
	nextSet := make(map[string]bool, len(next))
	for _, s := range next {
		nextSet[s] = true
	}
	for _, s := range next {
		if !prevSet[s] {
			add = append(add, s)
		}
	}
	for _, s := range prev {
		if !nextSet[s] {
			remove = append(remove, s)
		}
	}
	return add, remove
}

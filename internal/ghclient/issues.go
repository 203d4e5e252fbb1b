package ghclient

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/nopo-automation/issuebot/internal/issuedata"
	"github.com/nopo-automation/issuebot/internal/markdown"
)

// ParseIssue fetches an issue (and, when requested, its parent, PR, and
// sub-issues) and materializes it into an issuedata.IssueData, returning a
// Persist closure bound to the snapshot it read (spec.md §4.2).
func (c *Client) ParseIssue(ctx context.Context, owner, repo string, number int, opts issuedata.FetchOptions) (issuedata.IssueData, issuedata.PersistFunc, error) {
	issue, err := c.fetchIssue(ctx, owner, repo, number)
	if err != nil {
		return issuedata.IssueData{}, nil, err
	}

	fields, err := c.projectStatus(ctx, owner, repo, number, opts.ProjectNumber)
	if err != nil {
		return issuedata.IssueData{}, nil, fmt.Errorf("ghclient: project status for #%d: %w", number, err)
	}
	issue.ProjectStatus = issuedata.CanonicalizeStatus(fields.Status)
	issue.Iteration = fields.Iteration
	issue.Failures = fields.Failures

	subs, err := c.subIssueNumbers(ctx, owner, repo, number)
	if err != nil {
		return issuedata.IssueData{}, nil, fmt.Errorf("ghclient: sub-issues of #%d: %w", number, err)
	}
	issue.HasSubIssues = len(subs) > 0
	for _, subNumber := range subs {
		sub, err := c.fetchIssue(ctx, owner, repo, subNumber)
		if err != nil {
			return issuedata.IssueData{}, nil, fmt.Errorf("ghclient: fetch sub-issue #%d: %w", subNumber, err)
		}
		parentRef := number
		sub.ParentIssueNumber = &parentRef
		subFields, err := c.projectStatus(ctx, owner, repo, subNumber, opts.ProjectNumber)
		if err == nil {
			sub.ProjectStatus = issuedata.CanonicalizeStatus(subFields.Status)
			sub.Iteration = subFields.Iteration
			sub.Failures = subFields.Failures
		}
		if opts.FetchPRs {
			if pr, err := c.linkedPR(ctx, owner, repo, subNumber); err == nil {
				sub.PR = pr
			}
		}
		issue.SubIssues = append(issue.SubIssues, sub)
	}

	if opts.FetchPRs {
		if pr, err := c.linkedPR(ctx, owner, repo, number); err == nil {
			issue.PR = pr
		}
	}

	comments, err := c.ListComments(ctx, number)
	if err != nil {
		return issuedata.IssueData{}, nil, fmt.Errorf("ghclient: comments for #%d: %w", number, err)
	}
	issue.Comments = comments

	data := issuedata.IssueData{Owner: owner, Repo: repo, Number: number, Issue: issue}

	if opts.FetchParent {
		if parentNumber, err := c.parentIssueNumber(ctx, owner, repo, number); err == nil && parentNumber != 0 {
			parent, err := c.fetchIssue(ctx, owner, repo, parentNumber)
			if err == nil {
				data.ParentIssue = &parent
				data.Issue.ParentIssueNumber = &parentNumber
			}
		}
	}

	snapshot := data
	persist := func(ctx context.Context, next issuedata.IssueData) error {
		return c.persist(ctx, snapshot, next)
	}
	return data, persist, nil
}

func (c *Client) fetchIssue(ctx context.Context, owner, repo string, number int) (issuedata.Issue, error) {
	var gh *github.Issue
	err := c.call(ctx, func() error {
		var callErr error
		gh, _, callErr = c.rest.Issues.Get(ctx, owner, repo, number)
		return callErr
	})
	if err != nil {
		return issuedata.Issue{}, fmt.Errorf("ghclient: get issue #%d: %w", number, err)
	}

	body := gh.GetBody()
	ast, err := markdown.Parse(body)
	if err != nil {
		return issuedata.Issue{}, fmt.Errorf("ghclient: parse body of #%d: %w", number, err)
	}

	var labels []string
	for _, l := range gh.Labels {
		labels = append(labels, l.GetName())
	}
	var assignees []string
	for _, a := range gh.Assignees {
		assignees = append(assignees, a.GetLogin())
	}

	state := issuedata.StateOpen
	if gh.GetState() == "closed" {
		state = issuedata.StateClosed
	}

	return issuedata.Issue{
		Number:  number,
		Title:   gh.GetTitle(),
		BodyAST: ast,
		RawBody: body,
		State:   state,
		Labels:  labels,
		Assignees: assignees,
	}, nil
}

// ListComments returns an issue's (or PR's, since GitHub shares the
// namespace) comments in chronological order.
func (c *Client) ListComments(ctx context.Context, number int) ([]issuedata.Comment, error) {
	owner, repo := c.cfg.defaultOwnerRepo()
	var comments []*github.IssueComment
	err := c.call(ctx, func() error {
		var callErr error
		comments, _, callErr = c.rest.Issues.ListComments(ctx, owner, repo, number, &github.IssueListCommentsOptions{
			ListOptions: github.ListOptions{PerPage: 100},
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("ghclient: list comments for #%d: %w", number, err)
	}
	out := make([]issuedata.Comment, 0, len(comments))
	for _, cm := range comments {
		out = append(out, issuedata.Comment{
			ID:        fmt.Sprintf("%d", cm.GetID()),
			Author:    cm.GetUser().GetLogin(),
			Body:      cm.GetBody(),
			CreatedAt: cm.GetCreatedAt().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out, nil
}

// SetLabels adds and removes labels on an issue or PR.
func (c *Client) SetLabels(ctx context.Context, number int, add, remove []string) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	if len(add) > 0 {
		err := c.call(ctx, func() error {
			_, _, callErr := c.rest.Issues.AddLabelsToIssue(ctx, owner, repo, number, add)
			return callErr
		})
		if err != nil {
			return fmt.Errorf("ghclient: add labels to #%d: %w", number, err)
		}
	}
	for _, name := range remove {
		err := c.call(ctx, func() error {
			_, callErr := c.rest.Issues.RemoveLabelForIssue(ctx, owner, repo, number, name)
			return callErr
		})
		if err != nil {
			return fmt.Errorf("ghclient: remove label %q from #%d: %w", name, number, err)
		}
	}
	return nil
}

// AddAssignees assigns users to an issue or PR.
func (c *Client) AddAssignees(ctx context.Context, number int, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	owner, repo := c.cfg.defaultOwnerRepo()
	err := c.call(ctx, func() error {
		_, _, callErr := c.rest.Issues.AddAssignees(ctx, owner, repo, number, usernames)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: add assignees to #%d: %w", number, err)
	}
	return nil
}

// RemoveAssignees unassigns users from an issue or PR.
func (c *Client) RemoveAssignees(ctx context.Context, number int, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	owner, repo := c.cfg.defaultOwnerRepo()
	err := c.call(ctx, func() error {
		_, _, callErr := c.rest.Issues.RemoveAssignees(ctx, owner, repo, number, usernames)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: remove assignees from #%d: %w", number, err)
	}
	return nil
}

// CreateIssue opens a new issue, optionally registering it as a
// sub-issue of parentNumber.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string, parentNumber *int) (int, error) {
	owner, repo := c.cfg.defaultOwnerRepo()
	req := &github.IssueRequest{Title: &title, Body: &body}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	var created *github.Issue
	err := c.call(ctx, func() error {
		var callErr error
		created, _, callErr = c.rest.Issues.Create(ctx, owner, repo, req)
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("ghclient: create issue: %w", err)
	}
	number := created.GetNumber()
	if parentNumber != nil {
		if err := c.AddSubIssueToParent(ctx, *parentNumber, number); err != nil {
			return number, err
		}
	}
	return number, nil
}

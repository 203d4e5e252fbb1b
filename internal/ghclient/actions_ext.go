package ghclient

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// CreateBranch creates a new branch off baseBranch's current HEAD,
// skipping creation if branchName already exists (spec.md §4.6's
// createBranch action: "Create if absent; idempotent by checking
// ls-remote").
func (c *Client) CreateBranch(ctx context.Context, branchName, baseBranch string) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	var exists bool
	_ = c.call(ctx, func() error {
		_, _, callErr := c.rest.Git.GetRef(ctx, owner, repo, "refs/heads/"+branchName)
		exists = callErr == nil
		return nil
	})
	if exists {
		return nil
	}

	var base *github.Reference
	err := c.call(ctx, func() error {
		var callErr error
		base, _, callErr = c.rest.Git.GetRef(ctx, owner, repo, "refs/heads/"+baseBranch)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: resolve base branch %q: %w", baseBranch, err)
	}

	ref := &github.Reference{
		Ref:    github.Ptr("refs/heads/" + branchName),
		Object: &github.GitObject{SHA: base.Object.SHA},
	}
	err = c.call(ctx, func() error {
		_, _, callErr := c.rest.Git.CreateRef(ctx, owner, repo, ref)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: create branch %q: %w", branchName, err)
	}
	return nil
}

// CreatePR opens a pull request from head against base, or returns the
// number of an already-open PR from the same head branch (spec.md
// §4.6's createPR action: "Idempotent by head-branch lookup").
func (c *Client) CreatePR(ctx context.Context, title, body, head, base string, draft bool) (int, error) {
	owner, repo := c.cfg.defaultOwnerRepo()

	var existing []*github.PullRequest
	_ = c.call(ctx, func() error {
		var callErr error
		existing, _, callErr = c.rest.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
			State: "open",
			Head:  owner + ":" + head,
		})
		return callErr
	})
	if len(existing) > 0 {
		return existing[0].GetNumber(), nil
	}

	var pr *github.PullRequest
	err := c.call(ctx, func() error {
		var callErr error
		pr, _, callErr = c.rest.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
			Title: &title,
			Body:  &body,
			Head:  &head,
			Base:  &base,
			Draft: &draft,
		})
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("ghclient: create PR %s -> %s: %w", head, base, err)
	}
	return pr.GetNumber(), nil
}

// CloseIssue closes an issue directly, independent of Persist's
// state-diffing path, for executors that need an explicit close step
// (spec.md §4.6's closeIssue action).
func (c *Client) CloseIssue(ctx context.Context, number int) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	state := "closed"
	err := c.call(ctx, func() error {
		_, _, callErr := c.rest.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{State: &state})
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: close #%d: %w", number, err)
	}
	return nil
}

// AddComment posts a new comment on an issue or PR.
func (c *Client) AddComment(ctx context.Context, number int, body string) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	err := c.call(ctx, func() error {
		_, _, callErr := c.rest.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: &body})
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: comment on #%d: %w", number, err)
	}
	return nil
}

// AddReaction reacts to an existing comment, used by slash-command
// acknowledgement (spec.md §4.4's rocket/eyes reactions).
func (c *Client) AddReaction(ctx context.Context, commentID, reaction string) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	var id int64
	if _, err := fmt.Sscanf(commentID, "%d", &id); err != nil {
		return fmt.Errorf("ghclient: invalid comment id %q: %w", commentID, err)
	}
	err := c.call(ctx, func() error {
		_, _, callErr := c.rest.Reactions.CreateIssueCommentReaction(ctx, owner, repo, id, reaction)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: react %q to comment %s: %w", reaction, commentID, err)
	}
	return nil
}

// RemoveFromProject removes an issue's item from the configured
// project board (spec.md §4.6's removeFromProject action, used when
// resetting a pivoted parent's stale sub-issues).
func (c *Client) RemoveFromProject(ctx context.Context, number int) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	itemID, err := c.projectItemID(ctx, owner, repo, number)
	if err != nil || itemID == "" {
		return err
	}
	projectID, err := c.projectNodeID(ctx, owner, repo)
	if err != nil {
		return err
	}

	err = c.call(ctx, func() error {
		var m struct {
			DeleteProjectV2Item struct {
				ClientMutationID string
			} `graphql:"deleteProjectV2Item(input: $input)"`
		}
		input := map[string]interface{}{"projectId": projectID, "itemId": itemID}
		return c.gql.Mutate(ctx, &m, input, nil)
	})
	if err != nil {
		return fmt.Errorf("ghclient: remove #%d from project: %w", number, err)
	}
	return nil
}

// ResetIssue reverts an issue to its pre-pivot state: clears
// iteration/failure counters and body history is left to the caller
// (issuedata.Issue mutators), this only resets the board-side fields
// Persist won't otherwise touch.
func (c *Client) ResetIssue(ctx context.Context, number int) error {
	return c.UpdateProjectFields(ctx, number, map[string]string{"Status": "Backlog"})
}

package ghclient

import (
	"context"
	"fmt"

	graphql "github.com/cli/shurcooL-graphql"
	"github.com/google/go-github/v68/github"

	"github.com/nopo-automation/issuebot/internal/issuedata"
)

// MarkPRReady converts a draft pull request to ready-for-review.
func (c *Client) MarkPRReady(ctx context.Context, prNumber int) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	id, err := c.pullRequestNodeID(ctx, owner, repo, prNumber)
	if err != nil {
		return fmt.Errorf("ghclient: resolve PR node id for #%d: %w", prNumber, err)
	}
	err = c.call(ctx, func() error {
		var m struct {
			MarkPullRequestReadyForReview struct {
				ClientMutationID string
			} `graphql:"markPullRequestReadyForReview(input: $input)"`
		}
		input := map[string]interface{}{"pullRequestId": graphql.ID(id)}
		return c.gql.Mutate(ctx, &m, input, nil)
	})
	if err != nil {
		return fmt.Errorf("ghclient: mark PR #%d ready: %w", prNumber, err)
	}
	return nil
}

// RequestReviewer requests review from username on a pull request.
func (c *Client) RequestReviewer(ctx context.Context, prNumber int, username string) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	err := c.call(ctx, func() error {
		_, _, callErr := c.rest.PullRequests.RequestReviewers(ctx, owner, repo, prNumber, github.ReviewersRequest{
			Reviewers: []string{username},
		})
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: request reviewer %q on PR #%d: %w", username, prNumber, err)
	}
	return nil
}

// RemoveReviewer withdraws a pending review request (spec.md §4.6's
// removeReviewer action).
func (c *Client) RemoveReviewer(ctx context.Context, prNumber int, username string) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	err := c.call(ctx, func() error {
		_, callErr := c.rest.PullRequests.RemoveReviewers(ctx, owner, repo, prNumber, github.ReviewersRequest{
			Reviewers: []string{username},
		})
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: remove reviewer %q from PR #%d: %w", username, prNumber, err)
	}
	return nil
}

// ConvertPRToDraft reverts a pull request to draft state (spec.md §4.6's
// convertPRToDraft action).
func (c *Client) ConvertPRToDraft(ctx context.Context, prNumber int) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	id, err := c.pullRequestNodeID(ctx, owner, repo, prNumber)
	if err != nil {
		return fmt.Errorf("ghclient: resolve PR node id for #%d: %w", prNumber, err)
	}
	err = c.call(ctx, func() error {
		var m struct {
			ConvertPullRequestToDraft struct {
				ClientMutationID string
			} `graphql:"convertPullRequestToDraft(input: $input)"`
		}
		input := map[string]interface{}{"pullRequestId": graphql.ID(id)}
		return c.gql.Mutate(ctx, &m, input, nil)
	})
	if err != nil {
		return fmt.Errorf("ghclient: convert PR #%d to draft: %w", prNumber, err)
	}
	return nil
}

func (c *Client) pullRequestNodeID(ctx context.Context, owner, repo string, number int) (string, error) {
	var pr *github.PullRequest
	err := c.call(ctx, func() error {
		var callErr error
		pr, _, callErr = c.rest.PullRequests.Get(ctx, owner, repo, number)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return pr.GetNodeID(), nil
}

// linkedPR finds the pull request associated with issueNumber via its
// development branch naming convention (spec.md §3's branch field),
// falling back to GitHub's cross-reference timeline when no matching
// open PR is found by branch name.
func (c *Client) linkedPR(ctx context.Context, owner, repo string, issueNumber int) (*issuedata.PullRequest, error) {
	var prs []*github.PullRequest
	err := c.call(ctx, func() error {
		var callErr error
		prs, _, callErr = c.rest.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
			State:       "open",
			ListOptions: github.ListOptions{PerPage: 50},
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	suffix := fmt.Sprintf("issue/%d", issueNumber)
	for _, pr := range prs {
		head := pr.GetHead().GetRef()
		if len(head) >= len(suffix) && head[len(head)-len(suffix):] == suffix {
			out := toPullRequest(pr)
			out.CI = c.combinedCIStatus(ctx, owner, repo, pr.GetHead().GetSHA())
			return out, nil
		}
	}
	return nil, fmt.Errorf("no open PR linked to issue #%d", issueNumber)
}

// combinedCIStatus maps a commit's combined status to the ciResult
// fallback spec.md §4.3 step 3 describes ("SUCCESS→success,
// FAILURE|ERROR→failure"). Best-effort: any lookup error yields
// CIStatusNone rather than failing the whole fetch.
func (c *Client) combinedCIStatus(ctx context.Context, owner, repo, sha string) issuedata.CIStatus {
	if sha == "" {
		return issuedata.CIStatusNone
	}
	var status *github.CombinedStatus
	err := c.call(ctx, func() error {
		var callErr error
		status, _, callErr = c.rest.Repositories.GetCombinedStatus(ctx, owner, repo, sha, nil)
		return callErr
	})
	if err != nil {
		return issuedata.CIStatusNone
	}
	switch status.GetState() {
	case "success":
		return issuedata.CIStatusSuccess
	case "failure", "error":
		return issuedata.CIStatusFailure
	case "pending":
		return issuedata.CIStatusNone
	default:
		return issuedata.CIStatusNone
	}
}

func toPullRequest(pr *github.PullRequest) *issuedata.PullRequest {
	var labels []string
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}
	state := issuedata.PRStateOpen
	if pr.GetMerged() {
		state = issuedata.PRStateMerged
	} else if pr.GetState() == "closed" {
		state = issuedata.PRStateClosed
	}
	return &issuedata.PullRequest{
		Number:  pr.GetNumber(),
		State:   state,
		IsDraft: pr.GetDraft(),
		Title:   pr.GetTitle(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
		Labels:  labels,
	}
}

package ghclient

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// subIssueRef mirrors the fields we need from GitHub's REST sub-issues
// payload (GET /repos/{owner}/{repo}/issues/{number}/sub_issues), which
// google/go-github v68 does not yet wrap with a typed method.
type subIssueRef struct {
	Number int `json:"number"`
}

// subIssueNumbers lists the numbers of an issue's direct sub-issues.
func (c *Client) subIssueNumbers(ctx context.Context, owner, repo string, number int) ([]int, error) {
	url := fmt.Sprintf("repos/%s/%s/issues/%d/sub_issues", owner, repo, number)
	req, err := c.rest.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	var refs []subIssueRef
	err = c.call(ctx, func() error {
		_, callErr := c.rest.Do(ctx, req, &refs)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	nums := make([]int, 0, len(refs))
	for _, r := range refs {
		nums = append(nums, r.Number)
	}
	return nums, nil
}

// parentIssueNumber returns the parent issue's number, or 0 if number
// has no parent (GET /repos/{owner}/{repo}/issues/{number}/parent returns
// 404 in that case, which surfaces here as a non-nil error).
func (c *Client) parentIssueNumber(ctx context.Context, owner, repo string, number int) (int, error) {
	url := fmt.Sprintf("repos/%s/%s/issues/%d/parent", owner, repo, number)
	req, err := c.rest.NewRequest("GET", url, nil)
	if err != nil {
		return 0, err
	}
	var parent subIssueRef
	err = c.call(ctx, func() error {
		_, callErr := c.rest.Do(ctx, req, &parent)
		return callErr
	})
	if err != nil {
		return 0, err
	}
	return parent.Number, nil
}

// AddSubIssueToParent registers childNumber as a sub-issue of
// parentNumber (POST /repos/{owner}/{repo}/issues/{parent}/sub_issues).
func (c *Client) AddSubIssueToParent(ctx context.Context, parentNumber int, childNumber int) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	id, err := c.issueID(ctx, owner, repo, childNumber)
	if err != nil {
		return fmt.Errorf("ghclient: resolve issue id for #%d: %w", childNumber, err)
	}
	url := fmt.Sprintf("repos/%s/%s/issues/%d/sub_issues", owner, repo, parentNumber)
	body := map[string]interface{}{"sub_issue_id": id}
	req, err := c.rest.NewRequest("POST", url, body)
	if err != nil {
		return err
	}
	err = c.call(ctx, func() error {
		_, callErr := c.rest.Do(ctx, req, nil)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("ghclient: add sub-issue #%d to #%d: %w", childNumber, parentNumber, err)
	}
	return nil
}

func (c *Client) issueID(ctx context.Context, owner, repo string, number int) (int64, error) {
	var gh *github.Issue
	err := c.call(ctx, func() error {
		var callErr error
		gh, _, callErr = c.rest.Issues.Get(ctx, owner, repo, number)
		return callErr
	})
	if err != nil {
		return 0, err
	}
	return gh.GetID(), nil
}

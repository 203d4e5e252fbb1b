// Package ghclient implements internal/issuedata.Repository against the
// live GitHub API: REST via google/go-github, aggregate reads via GraphQL,
// and GitHub App authentication via bradleyfalzon/ghinstallation.
package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	graphql "github.com/cli/shurcooL-graphql"
	"github.com/google/go-github/v68/github"

	"github.com/nopo-automation/issuebot/internal/security"
)

// Config holds the GitHub App credentials and defaults a Client is built
// from (spec.md §6's external-interfaces section).
type Config struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  []byte
	BaseURL        string // empty for github.com

	Owner         string
	Repo          string
	ProjectNumber int
	BotUsername   string
}

// defaultOwnerRepo returns the single repository this Client operates
// against (spec.md §1 scopes one dispatcher process to one repository).
func (cfg Config) defaultOwnerRepo() (string, string) { return cfg.Owner, cfg.Repo }

// Client is the concrete internal/issuedata.Repository implementation.
type Client struct {
	rest    *github.Client
	gql     *graphql.Client
	limiter *security.RateLimiter
	cfg     Config
}

// New builds a Client authenticated as a GitHub App installation. The
// returned transport handles installation-token minting and refresh
// transparently on every request.
func New(cfg Config) (*Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("ghclient: build installation transport: %w", err)
	}
	httpClient := &http.Client{Transport: itr, Timeout: 30 * time.Second}

	rest := github.NewClient(httpClient)
	gqlClient := graphql.NewClient("https://api.github.com/graphql", httpClient)
	if cfg.BaseURL != "" {
		itr.BaseURL = cfg.BaseURL
		var uerr error
		rest, uerr = rest.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if uerr != nil {
			return nil, fmt.Errorf("ghclient: enterprise base URL: %w", uerr)
		}
	}

	return &Client{
		rest: rest,
		gql:  gqlClient,
		// GitHub's REST secondary rate limit guidance is roughly one
		// mutating request per second per installation.
		limiter: security.NewRateLimiter(1, time.Second),
		cfg:     cfg,
	}, nil
}

// throttle blocks briefly until the outbound rate limiter admits the
// next call. Adapted from internal/security.RateLimiter's inbound
// token-bucket middleware, reused here to pace outbound API calls
// instead of incoming HTTP requests.
func (c *Client) throttle(ctx context.Context) error {
	for !c.limiter.Allow("github-api") {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
	return nil
}

// maxAttempts bounds call's retries at 3 total tries, per spec.md §7's
// VCSFailure handling: "transient failures are retried by the
// capability layer up to 3 times with exponential backoff".
const maxAttempts = 3

// call throttles and runs req, retrying transient failures (network
// errors and 5xx responses) up to maxAttempts times with exponential
// backoff starting at 200ms. Persistent and non-transient failures
// (4xx, context cancellation) return immediately on the first error.
func (c *Client) call(ctx context.Context, req func() error) error {
	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.throttle(ctx); err != nil {
			return err
		}

		lastErr = req()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) || attempt == maxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// isTransient reports whether err looks like a network error or a
// GitHub 5xx/secondary-rate-limit response worth retrying, as opposed
// to a persistent failure (404, validation error, bad credentials).
func isTransient(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode >= 500 || ghErr.Response.StatusCode == http.StatusTooManyRequests
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

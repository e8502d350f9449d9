// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// maxErrorBodyBytes bounds how much of an error response is read when
	// looking for a rate-limit message.
	maxErrorBodyBytes = 64 << 10
)

// ErrUnexpectedStatus is wrapped by StatusError for errors.Is checks.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

type (
	// RateLimitError is returned when GitHub refuses a request because the
	// caller's API quota is exhausted. Supplying a token raises the quota.
	RateLimitError struct {
		StatusCode    int
		Limit         int
		Remaining     int
		ResetAt       time.Time
		Authenticated bool
	}

	// StatusError is returned for any other non-success response.
	StatusError struct {
		StatusCode int
		URL        string
	}

	// Client downloads repository tarballs from the GitHub API.
	Client struct {
		httpClient *http.Client
		baseURL    string // API base URL (overridable for tests)
		token      string // Optional bearer token
		userAgent  string
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	msg := "GitHub API rate limit exceeded"
	if !e.ResetAt.IsZero() && e.ResetAt.Unix() > 0 {
		msg += fmt.Sprintf(" (resets at %s)", e.ResetAt.UTC().Format("15:04 UTC"))
	}
	return msg
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(g *Client) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken sets a GitHub token sent as a bearer credential.
// Authenticated requests have a higher rate limit (5000/hour vs 60/hour).
func WithToken(token string) ClientOption {
	return func(g *Client) {
		g.token = strings.TrimSpace(token)
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// NewClient creates a Client with defaults: baseURL=DefaultBaseURL,
// userAgent="ragstrap/dev", httpClient=http.DefaultClient, no token.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "ragstrap/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticated reports whether requests carry a token.
func (c *Client) Authenticated() bool { return c.token != "" }

// DownloadArchive fetches the default-branch tarball of owner/repo and
// extracts it into dest, stripping the archive's top-level folder. Existing
// files in dest are overwritten; callers reset dest when a clean snapshot is
// required.
func (c *Client) DownloadArchive(ctx context.Context, owner, repo, dest string) (*ExtractResult, error) {
	tarballURL := fmt.Sprintf("%s/repos/%s/%s/tarball",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	resp, err := c.doRequest(ctx, http.MethodGet, tarballURL)
	if err != nil {
		return nil, fmt.Errorf("downloading %s/%s: %w", owner, repo, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := c.checkRateLimit(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: tarballURL}
	}

	result, err := Extract(resp.Body, dest)
	if err != nil {
		return nil, fmt.Errorf("extracting %s/%s: %w", owner, repo, err)
	}
	return result, nil
}

// doRequest creates and executes an HTTP request with common GitHub API headers.
func (c *Client) doRequest(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Only attach the token for the configured API host. Redirects to the
	// codeload CDN are followed by net/http, which drops the header itself.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// checkRateLimit returns a RateLimitError for a 403 whose remaining quota is
// zero or whose body mentions the rate limit, and for any 429. It consumes the
// body only for those status codes.
func (c *Client) checkRateLimit(resp *http.Response) error {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	limited := resp.StatusCode == http.StatusTooManyRequests
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		limited = true
	}
	if !limited {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes)) //nolint:errcheck // Best-effort body inspection.
		limited = strings.Contains(strings.ToLower(string(body)), "rate limit")
	}
	if !limited {
		return nil
	}

	// Companion headers only enrich the message; malformed values default to zero.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.
	var resetAt time.Time
	if resetUnix > 0 {
		resetAt = time.Unix(resetUnix, 0)
	}

	return &RateLimitError{
		StatusCode:    resp.StatusCode,
		Limit:         limit,
		Remaining:     0,
		ResetAt:       resetAt,
		Authenticated: c.token != "",
	}
}

// isGitHubHost reports whether reqURL targets the configured API host.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(reqURL.Host, base.Host)
}

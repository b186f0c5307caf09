// Package ghapi is a thin GitHub REST client used to resolve logins and to
// collect the activity that feeds an analysis request.
package ghapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com/"

// lowRemaining is the X-RateLimit-Remaining value below which responses are
// logged as a warning.
const lowRemaining = 10

// Client wraps a go-github client.
type Client struct {
	gh *github.Client
}

// New returns a Client for baseURL. An empty token makes unauthenticated
// requests; an empty baseURL uses DefaultBaseURL.
func New(token, baseURL string) (*Client, error) {
	var base http.RoundTripper = http.DefaultTransport
	if token != "" {
		base = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base,
		}
	}
	httpClient := &http.Client{
		Transport: &rateLimitTransport{base: base},
		Timeout:   30 * time.Second,
	}
	gh := github.NewClient(httpClient)
	if baseURL != "" && baseURL != DefaultBaseURL {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub API URL: %w", err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh}, nil
}

// Login returns the login of the authenticated user.
func (c *Client) Login(ctx context.Context) (string, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("fetching authenticated user: %w", err)
	}
	if user.GetLogin() == "" {
		return "", fmt.Errorf("authenticated user has no login")
	}
	return user.GetLogin(), nil
}

// LoginResolver looks up the login behind an access token.
type LoginResolver struct {
	BaseURL string
}

// ResolveLogin returns the GitHub login that owns token.
func (r LoginResolver) ResolveLogin(ctx context.Context, token string) (string, error) {
	c, err := New(token, r.BaseURL)
	if err != nil {
		return "", err
	}
	return c.Login(ctx)
}

// rateLimitTransport logs when GitHub reports the rate limit is nearly
// exhausted. It never retries or sleeps.
type rateLimitTransport struct {
	base http.RoundTripper
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("github rate limited", "status", resp.StatusCode,
			"retry_after", resp.Header.Get("Retry-After"), "path", req.URL.Path)
		return resp, nil
	}
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		rem, parseErr := strconv.Atoi(remaining)
		if parseErr == nil && rem <= lowRemaining {
			attrs := []any{"remaining", rem}
			if reset, parseErr := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); parseErr == nil {
				attrs = append(attrs, "reset_in", time.Until(time.Unix(reset, 0)).Round(time.Second))
			}
			slog.Warn("approaching github rate limit", attrs...)
		}
	}
	return resp, nil
}

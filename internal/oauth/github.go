// Package oauth implements the GitHub authorization-code flow on behalf of a
// client app. The app's return URL travels through GitHub as the state
// parameter, and the access token is handed back in the URL fragment. Tokens
// are never stored.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	// ErrConfiguration means the client ID is unset.
	ErrConfiguration = errors.New("GitHub client ID is not configured")
	// ErrMissingCredentials means the client ID or secret is unset.
	ErrMissingCredentials = errors.New("GitHub OAuth credentials are not configured")

	// ErrExchange matches every error caused by the callback request itself.
	ErrExchange = errors.New("oauth exchange failed")

	ErrMissingCode         = fmt.Errorf("%w: missing code", ErrExchange)
	ErrMissingState        = fmt.Errorf("%w: missing state", ErrExchange)
	ErrInvalidState        = fmt.Errorf("%w: invalid state", ErrExchange)
	ErrTokenExchangeFailed = fmt.Errorf("%w: token exchange failed", ErrExchange)
)

// Scopes requested on every authorization.
var Scopes = []string{"read:user", "repo"}

// LoginResolver looks up the GitHub login behind an access token.
type LoginResolver interface {
	ResolveLogin(ctx context.Context, token string) (string, error)
}

// Config holds the OAuth app settings.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// AuthBaseURL overrides https://github.com, e.g. for GitHub Enterprise.
	AuthBaseURL string
	// HTTPClient is used for the token request. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client
	// Resolver, when set, adds the user's login to the redirect.
	Resolver LoginResolver
	// AllowedRedirects, when non-empty, lists the URL prefixes a state may
	// start with.
	AllowedRedirects []string
}

// GitHub runs the authorization-code flow against GitHub.
type GitHub struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	resolver   LoginResolver
	allowed    []string
}

// NewGitHub returns a GitHub flow for cfg. Missing credentials are reported
// per call, not here.
func NewGitHub(cfg Config) *GitHub {
	endpoint := github.Endpoint
	if base := strings.TrimRight(cfg.AuthBaseURL, "/"); base != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  base + "/login/oauth/authorize",
			TokenURL: base + "/login/oauth/access_token",
		}
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		httpClient: httpClient,
		resolver:   cfg.Resolver,
		allowed:    cfg.AllowedRedirects,
	}
}

// AuthorizeURL returns the GitHub authorize URL that will eventually send the
// user back to continuation.
func (g *GitHub) AuthorizeURL(continuation string) (string, error) {
	if g.oauth.ClientID == "" {
		return "", ErrConfiguration
	}
	if err := g.checkState(continuation); err != nil {
		return "", err
	}
	return g.oauth.AuthCodeURL(continuation), nil
}

// checkState validates the continuation URL the token will be appended to.
// It must not carry a fragment of its own and, if an allowlist is set, must
// start with one of its prefixes.
func (g *GitHub) checkState(state string) error {
	if state == "" {
		return ErrMissingState
	}
	if strings.Contains(state, "#") {
		return fmt.Errorf("%w: contains a fragment", ErrInvalidState)
	}
	if len(g.allowed) == 0 {
		return nil
	}
	for _, prefix := range g.allowed {
		if prefix != "" && strings.HasPrefix(state, prefix) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not an allowed redirect", ErrInvalidState, state)
}

// Exchange trades code for an access token and returns the URL the caller
// should be redirected to: state with the token in its fragment.
func (g *GitHub) Exchange(ctx context.Context, code, state string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}
	if err := g.checkState(state); err != nil {
		return "", err
	}
	if g.oauth.ClientID == "" || g.oauth.ClientSecret == "" {
		return "", ErrMissingCredentials
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return "", ErrTokenExchangeFailed
	}

	redirect := state + "#access_token=" + tok.AccessToken
	if g.resolver != nil {
		login, err := g.resolver.ResolveLogin(ctx, tok.AccessToken)
		if err != nil {
			slog.Warn("could not resolve GitHub login", "error", err)
		} else {
			redirect += "&login=" + url.QueryEscape(login)
		}
	}
	return redirect, nil
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/drpaneas/devtracker/internal/analysis"
	"github.com/drpaneas/devtracker/internal/oauth"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	analyzer     Analyzer
	oauth        OAuthFlow
	logger       *slog.Logger
	maxBodyBytes int64
	version      string
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// decodeJSON decodes a size-limited JSON body into target. Unknown fields
// are ignored so older and newer clients keep working.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes.", maxErr.Limit))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Request body is empty.")
		default:
			writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		}
		return false
	}
	return true
}

func requireField(w http.ResponseWriter, name, value string) bool {
	if value == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Field %q is required.", name))
		return false
	}
	return true
}

// HandleAnalyzeDevProfile handles POST /analyze-dev-profile.
func (h *Handlers) HandleAnalyzeDevProfile(w http.ResponseWriter, r *http.Request) {
	var req analysis.DevAnalysisRequest
	if !h.decodeJSON(w, r, &req) || !requireField(w, "username", req.Username) {
		return
	}
	writeJSON(w, http.StatusOK, h.analyzer.AnalyzeDeveloper(r.Context(), req))
}

// HandleAnalyzeRepo handles POST /analyze-repo.
func (h *Handlers) HandleAnalyzeRepo(w http.ResponseWriter, r *http.Request) {
	var req analysis.RepoAnalysisRequest
	if !h.decodeJSON(w, r, &req) ||
		!requireField(w, "username", req.Username) ||
		!requireField(w, "repo_name", req.RepoName) {
		return
	}
	writeJSON(w, http.StatusOK, h.analyzer.AnalyzeRepository(r.Context(), req))
}

// HandleAnalyzeGoal handles POST /analyze-goal.
func (h *Handlers) HandleAnalyzeGoal(w http.ResponseWriter, r *http.Request) {
	var req analysis.GoalAnalysisRequest
	if !h.decodeJSON(w, r, &req) || !requireField(w, "goal_title", req.GoalTitle) {
		return
	}
	writeJSON(w, http.StatusOK, h.analyzer.AnalyzeGoal(r.Context(), req))
}

// HandleAnalyzeGitHub handles POST /analyze-github.
func (h *Handlers) HandleAnalyzeGitHub(w http.ResponseWriter, r *http.Request) {
	var req analysis.GitHubInsightsRequest
	if !h.decodeJSON(w, r, &req) || !requireField(w, "username", req.Username) {
		return
	}
	writeJSON(w, http.StatusOK, h.analyzer.AnalyzeGitHubInsights(r.Context(), req))
}

// HandleGitHubLogin handles GET /auth/github/login by redirecting to GitHub.
func (h *Handlers) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	target, err := h.oauth.AuthorizeURL(r.URL.Query().Get("redirect_uri"))
	switch {
	case errors.Is(err, oauth.ErrConfiguration):
		h.logger.Error("oauth login unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, "GitHub client ID is not configured.")
	case errors.Is(err, oauth.ErrMissingState):
		writeError(w, http.StatusBadRequest, "Missing redirect_uri.")
	case errors.Is(err, oauth.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "Invalid redirect_uri.")
	case err != nil:
		h.logger.Error("oauth login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not start GitHub login.")
	default:
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// HandleGitHubCallback handles GET /auth/github/callback by exchanging the
// code and redirecting back to the app with the token.
func (h *Handlers) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := h.oauth.Exchange(r.Context(), q.Get("code"), q.Get("state"))
	switch {
	case err == nil:
		http.Redirect(w, r, target, http.StatusFound)
	case errors.Is(err, oauth.ErrMissingCode):
		writeError(w, http.StatusBadRequest, "Missing code in callback.")
	case errors.Is(err, oauth.ErrMissingState):
		writeError(w, http.StatusBadRequest, "Missing state in callback.")
	case errors.Is(err, oauth.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "Invalid state in callback.")
	case errors.Is(err, oauth.ErrMissingCredentials):
		h.logger.Error("oauth callback unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, "GitHub OAuth credentials are not configured.")
	case errors.Is(err, oauth.ErrTokenExchangeFailed):
		h.logger.Warn("github token exchange failed", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to obtain access token from GitHub.")
	default:
		h.logger.Error("oauth callback failed", "error", err)
		writeError(w, http.StatusInternalServerError, "GitHub login failed.")
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// Package server exposes the analysis and OAuth flows over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/drpaneas/devtracker/internal/analysis"
)

// Analyzer produces analysis responses. Implementations never fail; they
// fall back to a default response instead.
type Analyzer interface {
	AnalyzeDeveloper(ctx context.Context, req analysis.DevAnalysisRequest) analysis.DevAnalysisResponse
	AnalyzeRepository(ctx context.Context, req analysis.RepoAnalysisRequest) analysis.RepoAnalysisResponse
	AnalyzeGoal(ctx context.Context, req analysis.GoalAnalysisRequest) analysis.LearningAnalysisResponse
	AnalyzeGitHubInsights(ctx context.Context, req analysis.GitHubInsightsRequest) analysis.GitHubInsightsResponse
}

// OAuthFlow runs the GitHub authorization-code flow.
type OAuthFlow interface {
	AuthorizeURL(continuation string) (string, error)
	Exchange(ctx context.Context, code, state string) (string, error)
}

// Server is the devtracker HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// ServerConfig holds the dependencies and settings for a Server.
type ServerConfig struct {
	Analyzer Analyzer
	OAuth    OAuthFlow
	Logger   *slog.Logger

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBodyBytes int64
	Version             string
}

// New creates a server with all routes configured.
func New(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handlers{
		analyzer:     cfg.Analyzer,
		oauth:        cfg.OAuth,
		logger:       cfg.Logger,
		maxBodyBytes: cfg.MaxRequestBodyBytes,
		version:      cfg.Version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze-dev-profile", h.HandleAnalyzeDevProfile)
	mux.HandleFunc("POST /analyze-repo", h.HandleAnalyzeRepo)
	mux.HandleFunc("POST /analyze-goal", h.HandleAnalyzeGoal)
	mux.HandleFunc("POST /analyze-github", h.HandleAnalyzeGitHub)
	mux.HandleFunc("GET /auth/github/login", h.HandleGitHubLogin)
	mux.HandleFunc("GET /auth/github/callback", h.HandleGitHubCallback)
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Outermost first: request ID, CORS, tracing, logging, recovery.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h2c.NewHandler(handler, &http2.Server{}),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

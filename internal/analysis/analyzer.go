// Package analysis turns developer activity into structured mentoring advice.
//
// Each Analyze method renders a prompt, runs one completion on the shared
// worker pool, and extracts a typed response from the reply. Any failure along
// the way yields the matching fallback record instead of an error, so callers
// always get a response whose Source says where it came from.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/drpaneas/devtracker/internal/extract"
	"github.com/drpaneas/devtracker/internal/llm"
	"github.com/drpaneas/devtracker/internal/workpool"
)

// DefaultTimeout bounds a single completion.
const DefaultTimeout = 60 * time.Second

// ErrGatewayUnavailable wraps every failure to obtain a completion.
var ErrGatewayUnavailable = errors.New("completion gateway unavailable")

type endpoint struct {
	name        string
	maxTokens   int
	temperature float32
	required    string
}

var (
	devProfileEndpoint = endpoint{name: "dev-profile", maxTokens: 1000, temperature: 0.6, required: "summary"}
	repoEndpoint       = endpoint{name: "repo", maxTokens: 700, temperature: 0.7, required: "summary"}
	goalEndpoint       = endpoint{name: "goal", maxTokens: 500, temperature: 0.7, required: "suggestions"}
	insightsEndpoint   = endpoint{name: "github", maxTokens: 800, temperature: 0.7, required: "skill_analysis"}
)

// Analyzer runs analyses against an LLM provider.
type Analyzer struct {
	provider llm.Provider
	pool     *workpool.Pool
	timeout  time.Duration
	logger   *slog.Logger
	results  metric.Int64Counter
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTimeout sets the per-completion timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Analyzer that submits completions for provider to pool.
func New(provider llm.Provider, pool *workpool.Pool, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider: provider,
		pool:     pool,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	counter, err := otel.Meter("github.com/drpaneas/devtracker/internal/analysis").Int64Counter(
		"devtracker.analysis.results",
		metric.WithDescription("Analysis responses by endpoint and source"),
	)
	if err != nil {
		a.logger.Warn("creating analysis counter", "error", err)
	}
	a.results = counter
	return a
}

// AnalyzeDeveloper summarizes a developer profile.
func (a *Analyzer) AnalyzeDeveloper(ctx context.Context, req DevAnalysisRequest) DevAnalysisResponse {
	return run(ctx, a, devProfileEndpoint, buildDevProfilePrompt(req), FallbackDevAnalysis)
}

// AnalyzeRepository scores a single repository.
func (a *Analyzer) AnalyzeRepository(ctx context.Context, req RepoAnalysisRequest) RepoAnalysisResponse {
	return run(ctx, a, repoEndpoint, buildRepoPrompt(req), FallbackRepoAnalysis)
}

// AnalyzeGoal suggests next steps for a learning goal.
func (a *Analyzer) AnalyzeGoal(ctx context.Context, req GoalAnalysisRequest) LearningAnalysisResponse {
	return run(ctx, a, goalEndpoint, buildGoalPrompt(req), func() LearningAnalysisResponse {
		return FallbackGoalAnalysis(req)
	})
}

// AnalyzeGitHubInsights derives learning insights from raw GitHub activity.
func (a *Analyzer) AnalyzeGitHubInsights(ctx context.Context, req GitHubInsightsRequest) GitHubInsightsResponse {
	return run(ctx, a, insightsEndpoint, buildGitHubInsightsPrompt(req), func() GitHubInsightsResponse {
		return FallbackGitHubInsights(req)
	})
}

type response[T any] interface {
	*T
	finish(source string)
}

func run[T any, PT response[T]](ctx context.Context, a *Analyzer, ep endpoint, prompt string, fallback func() T) T {
	log := a.logger.With("endpoint", ep.name)

	raw, err := a.complete(ctx, ep, prompt)
	if err != nil {
		log.Error("completion failed", "error", err)
		log.Warn("using fallback response", "reason", "gateway")
		a.record(ctx, ep, SourceFallback)
		return fallback()
	}

	var out T
	if err := extract.Into(raw, &out, ep.required); err != nil {
		attrs := []any{"error", err}
		var xe *extract.Error
		if errors.As(err, &xe) {
			attrs = append(attrs, "reason", xe.Kind.String(), "reply", xe.Snippet)
		}
		log.Warn("using fallback response", attrs...)
		a.record(ctx, ep, SourceFallback)
		return fallback()
	}
	PT(&out).finish(SourceAI)
	log.Debug("analysis completed", "source", SourceAI)
	a.record(ctx, ep, SourceAI)
	return out
}

// complete runs one completion on the pool. ctx only bounds the wait for a
// worker; the call itself is bounded by the analyzer's timeout.
func (a *Analyzer) complete(ctx context.Context, ep endpoint, prompt string) (string, error) {
	opts := &llm.CompleteOptions{
		Temperature: llm.Temperature(ep.temperature),
		MaxTokens:   ep.maxTokens,
	}
	raw, err := workpool.Do(ctx, a.pool, func() (string, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.provider.Complete(callCtx, systemPrompt, prompt, opts)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, llm.ErrEmptyCompletion)
	}
	return raw, nil
}

func (a *Analyzer) record(ctx context.Context, ep endpoint, source string) {
	if a.results == nil {
		return
	}
	a.results.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("endpoint", ep.name),
		attribute.String("source", source),
	))
}

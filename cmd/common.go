package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drpaneas/devtracker/internal/analysis"
	"github.com/drpaneas/devtracker/internal/config"
	"github.com/drpaneas/devtracker/internal/extract"
	"github.com/drpaneas/devtracker/internal/llm"
	"github.com/drpaneas/devtracker/internal/workpool"
)

// llmFlags are the provider overrides shared by serve and analyze.
type llmFlags struct {
	provider string
	model    string
	verbose  bool
}

func (f *llmFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "LLM provider: openai, anthropic, gemini, ollama, none (default $LLM_PROVIDER or openai)")
	cmd.Flags().StringVar(&f.model, "model", "", "LLM model (default: per-provider)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
}

func (f *llmFlags) apply(cfg *config.Config) {
	if f.provider != "" {
		cfg.Provider = llm.ProviderName(strings.ToLower(f.provider))
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.verbose {
		cfg.Verbose = true
	}
}

// newLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
// --verbose wins over LOG_LEVEL.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newAnalyzer wires provider, middleware and worker pool. The returned
// pool must be closed by the caller once no more analyses will run.
func newAnalyzer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*analysis.Analyzer, *workpool.Pool, error) {
	pc := cfg.ProviderConfig()
	provider, err := llm.NewProvider(ctx, pc)
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	provider = llm.Wrap(provider,
		llm.WithTracing(pc.Name, pc.Model),
		llm.WithCache(cfg.CacheSize, cfg.CacheTTL, extract.HasObject),
	)

	pool := workpool.New(cfg.WorkerPoolSize)
	a := analysis.New(provider, pool,
		analysis.WithTimeout(cfg.GatewayTimeout),
		analysis.WithLogger(logger),
	)
	return a, pool, nil
}

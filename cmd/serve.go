package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drpaneas/devtracker/internal/config"
	"github.com/drpaneas/devtracker/internal/ghapi"
	"github.com/drpaneas/devtracker/internal/oauth"
	"github.com/drpaneas/devtracker/internal/server"
	"github.com/drpaneas/devtracker/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd returns the command that runs the HTTP API.
func NewServeCmd(version string) *cobra.Command {
	var (
		flags llmFlags
		port  int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis and GitHub login API",
		Long: `Serve the DevTracker backend over HTTP.

Examples:
  # Serve on the default port with the provider from $LLM_PROVIDER
  devtracker serve

  # Use a local Ollama model on port 9000
  devtracker serve --provider ollama --model llama3 --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			flags.apply(&cfg)
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, version)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "Port to listen on (default $PORT or 8000)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, version string) error {
	logger := newLogger(cfg)
	pc := cfg.ProviderConfig()
	logger.Info("starting devtracker",
		"version", version,
		"provider", pc.Name,
		"model", pc.Model,
		"workers", cfg.WorkerPoolSize,
		"gateway_timeout", cfg.GatewayTimeout,
	)

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	analyzer, pool, err := newAnalyzer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("worker pool shutdown failed", "error", err)
		}
	}()

	oauthCfg := oauth.Config{
		ClientID:         cfg.GitHubClientID,
		ClientSecret:     cfg.GitHubClientSecret,
		CallbackURL:      cfg.GitHubCallbackURL,
		AuthBaseURL:      cfg.GitHubOAuthURL,
		AllowedRedirects: cfg.AllowedRedirects,
	}
	if cfg.ResolveLogin {
		oauthCfg.Resolver = ghapi.LoginResolver{BaseURL: cfg.GitHubAPIURL}
	}
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		logger.Warn("GitHub OAuth credentials are not configured; login endpoints will fail")
	}

	srv := server.New(server.ServerConfig{
		Analyzer:            analyzer,
		OAuth:               oauth.NewGitHub(oauthCfg),
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		Version:             version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

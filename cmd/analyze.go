package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drpaneas/devtracker/internal/analysis"
	"github.com/drpaneas/devtracker/internal/config"
	"github.com/drpaneas/devtracker/internal/ghapi"
)

// Analysis kinds accepted by the analyze command.
const (
	kindDev    = "dev"
	kindRepo   = "repo"
	kindGoal   = "goal"
	kindGitHub = "github"
)

type analyzeOptions struct {
	llmFlags
	githubUser string
	repo       string
	maxRepos   int
}

// NewAnalyzeCmd returns the command that runs a single analysis locally.
func NewAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze {dev|repo|goal|github} [REQUEST.json|-]",
		Short: "Run one analysis and print the JSON result",
		Long: `Run one analysis through the same pipeline the server uses.

The request is read from a JSON file, or from stdin when the path is "-".
For dev and github analyses --github-user builds the request from the
user's public GitHub activity instead; for repo analyses --repo does the
same for a single repository.

Examples:
  # Analyze a learning goal
  devtracker analyze goal goal.json

  # Analyze a developer straight from GitHub
  devtracker analyze dev --github-user octocat

  # Analyze a repository
  devtracker analyze repo --repo octocat/hello-world --provider anthropic`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{kindDev, kindRepo, kindGoal, kindGitHub},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			opts.apply(&cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			input := ""
			if len(args) == 2 {
				input = args[1]
			}
			return runAnalyze(cmd.Context(), cmd, cfg, &opts, args[0], input)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.githubUser, "github-user", "", "Build the request from this GitHub user's activity (dev, github)")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "Build the request from this repository, as owner/name (repo)")
	cmd.Flags().IntVar(&opts.maxRepos, "max-repos", ghapi.DefaultMaxRepos, "Maximum repositories to inspect with --github-user")
	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, cfg config.Config, opts *analyzeOptions, kind, input string) error {
	logger := newLogger(cfg)
	switch kind {
	case kindDev, kindRepo, kindGoal, kindGitHub:
	default:
		return fmt.Errorf("unknown analysis kind %q: must be dev, repo, goal, or github", kind)
	}
	if input == "" && opts.githubUser == "" && opts.repo == "" {
		return errors.New("a request file, --github-user, or --repo is required")
	}

	analyzer, pool, err := newAnalyzer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	var result any
	switch kind {
	case kindDev:
		var req analysis.DevAnalysisRequest
		if opts.githubUser != "" {
			act, err := collectActivity(ctx, cfg, opts)
			if err != nil {
				return err
			}
			req = act.DevRequest()
		} else if err := readRequest(cmd.InOrStdin(), input, &req); err != nil {
			return err
		}
		if err := required("username", req.Username); err != nil {
			return err
		}
		result = analyzer.AnalyzeDeveloper(ctx, req)

	case kindGitHub:
		var req analysis.GitHubInsightsRequest
		if opts.githubUser != "" {
			act, err := collectActivity(ctx, cfg, opts)
			if err != nil {
				return err
			}
			req = act.InsightsRequest()
		} else if err := readRequest(cmd.InOrStdin(), input, &req); err != nil {
			return err
		}
		if err := required("username", req.Username); err != nil {
			return err
		}
		result = analyzer.AnalyzeGitHubInsights(ctx, req)

	case kindRepo:
		var req analysis.RepoAnalysisRequest
		if opts.repo != "" {
			owner, name, ok := strings.Cut(opts.repo, "/")
			if !ok || owner == "" || name == "" {
				return fmt.Errorf("--repo must be owner/name, got %q", opts.repo)
			}
			gh, err := ghapi.New(cfg.GitHubToken, cfg.GitHubAPIURL)
			if err != nil {
				return err
			}
			if req, err = gh.RepoRequest(ctx, owner, name); err != nil {
				return fmt.Errorf("fetching repository %s: %w", opts.repo, err)
			}
		} else if err := readRequest(cmd.InOrStdin(), input, &req); err != nil {
			return err
		}
		if err := required("username", req.Username); err != nil {
			return err
		}
		if err := required("repo_name", req.RepoName); err != nil {
			return err
		}
		result = analyzer.AnalyzeRepository(ctx, req)

	case kindGoal:
		var req analysis.GoalAnalysisRequest
		if err := readRequest(cmd.InOrStdin(), input, &req); err != nil {
			return err
		}
		if err := required("goal_title", req.GoalTitle); err != nil {
			return err
		}
		result = analyzer.AnalyzeGoal(ctx, req)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func collectActivity(ctx context.Context, cfg config.Config, opts *analyzeOptions) (*ghapi.Activity, error) {
	gh, err := ghapi.New(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return nil, err
	}
	act, err := gh.CollectActivity(ctx, opts.githubUser, opts.maxRepos)
	if err != nil {
		return nil, fmt.Errorf("collecting GitHub activity for %s: %w", opts.githubUser, err)
	}
	return act, nil
}

// readRequest decodes the JSON request at path, or from stdin when path
// is "-".
func readRequest(stdin io.Reader, path string, dst any) error {
	if path == "" {
		return errors.New("no request file given")
	}
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening request: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("decoding request %s: %w", path, err)
	}
	return nil
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("field %q is required", field)
	}
	return nil
}

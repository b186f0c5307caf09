package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/drpaneas/devtracker/cmd"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "devtracker",
		Short: "AI-assisted developer progress backend",
		Long: `devtracker analyzes developer profiles, repositories and learning goals
with an LLM, falling back to sensible defaults when the model is unavailable,
and brokers GitHub login for the DevTracker app.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env file is normal outside local development.
			_ = godotenv.Load()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		cmd.NewServeCmd(version),
		cmd.NewAnalyzeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "devtracker version %s\n", version)
		},
	}
}

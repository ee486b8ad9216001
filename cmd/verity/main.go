// Package main provides the verity CLI, which checks a chatbot's answers
// against a reference question set.
//
// # Basic Usage
//
// Validate a configuration file:
//
//	verity validate --config verity.yaml
//
// Run a verification:
//
//	verity run --config verity.yaml --observations postman.json --references excel.csv
//
// Generate test questions from the reference bank:
//
//	verity generate --references excel.csv --count 10
//
// # Environment Variables
//
// API keys are read from the variable named by provider.api_key_env, or the
// provider default when unset:
//
//   - OPENAI_API_KEY: OpenAI embeddings and the openai judge backend
//   - GOOGLE_API_KEY: Google embeddings
//   - ANTHROPIC_API_KEY: the anthropic judge and generation backend
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(newLogger(os.Stderr, slog.LevelInfo))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("command execution failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "verity",
		Short: "Verify chatbot answers against a reference question set",
		Long: `verity pairs each observed question/answer exchange with the closest
reference question and grades the observed answer against the expected one.

Similarity comes from an embedding provider (openai, google, ollama), an
offline edit-distance comparison (lexical) or an LLM judge.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), level))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildGenerateCmd(),
		buildValidateCmd(),
	)

	return rootCmd
}

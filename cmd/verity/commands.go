package main

import (
	"github.com/spf13/cobra"
)

// runOptions collects the flags of the run command. Path and worker flags
// override the config file only when set on the command line.
type runOptions struct {
	configPath   string
	observations string
	references   string
	results      string
	report       string
	workers      int
	metricsAddr  string
	trace        bool
}

// buildRunCmd creates the "run" command that performs a verification.
func buildRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Verify observed exchanges against the reference set",
		Long: `Load the observations and references, score every observation with the
configured similarity provider, and write the results and report files.

Nothing is written when any provider call fails; the command exits non-zero.`,
		Example: `  # Offline run with the defaults
  verity run --observations postman.json --references excel.csv

  # Embedding provider from a config file, four workers, metrics on :9090
  verity run --config verity.yaml --workers 4 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, cmd.Flags().Changed)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to YAML configuration file (defaults apply when empty)")
	cmd.Flags().StringVar(&opts.observations, "observations", "",
		"Observations JSON file")
	cmd.Flags().StringVar(&opts.references, "references", "",
		"References JSON or CSV file")
	cmd.Flags().StringVarP(&opts.results, "output", "o", "",
		"Results file in the per-record wire format")
	cmd.Flags().StringVar(&opts.report, "report", "",
		"Report file with run metadata and summary")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0,
		"Observations matched concurrently")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&opts.trace, "trace", false,
		"Print OpenTelemetry spans to stderr")

	return cmd
}

// buildValidateCmd creates the "validate" command that checks a config file.
func buildValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.OutOrStdout(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "verity.yaml",
		"Path to YAML configuration file")

	return cmd
}

// generateOptions collects the flags of the generate command.
type generateOptions struct {
	configPath string
	references string
	output     string
	mode       string
	count      int
	language   string
	context    string
}

// buildGenerateCmd creates the "generate" command that writes test questions.
func buildGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate test questions for the agent under test",
		Long: `Ask the configured completion backend for test questions and write them
as a JSON array of {"id", "question"} objects.

in_context summarizes the reference bank and asks for questions it can
answer. out_of_context asks for unrelated questions, one call each, to
exercise the no match path.`,
		Example: `  # Ten in-context questions from the reference bank
  verity generate --references excel.csv --count 10

  # Out-of-context questions in Danish
  verity generate --mode out_of_context --language Danish -o generated_questions/ooc.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), opts, cmd.Flags().Changed)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to YAML configuration file (defaults apply when empty)")
	cmd.Flags().StringVar(&opts.references, "references", "",
		"References JSON or CSV file, required for in_context")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "",
		"Questions JSON file")
	cmd.Flags().StringVar(&opts.mode, "mode", "",
		"Generation mode: in_context or out_of_context")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0,
		"Number of questions to generate")
	cmd.Flags().StringVar(&opts.language, "language", "",
		"Language named in the prompt")
	cmd.Flags().StringVar(&opts.context, "context", "",
		"Seed text for out_of_context generation")

	return cmd
}

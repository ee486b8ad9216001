package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/go-verity/infrastructure/middleware"
	"github.com/ahrav/go-verity/infrastructure/recordio"
	"github.com/ahrav/go-verity/internal/application"
	"github.com/ahrav/go-verity/internal/domain"
)

const shutdownTimeout = 5 * time.Second

// runVerify loads the configuration, applies flag overrides, builds the
// provider and executes one run.
func runVerify(ctx context.Context, stdout, stderr io.Writer, opts runOptions, changed func(string) bool) error {
	logger := slog.Default()

	loader, err := application.NewConfigLoader()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(loader, opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, opts, changed)
	if err := loader.Validate(cfg); err != nil {
		return err
	}
	if cfg.Inputs.Observations == "" || cfg.Inputs.References == "" {
		return fmt.Errorf("%w: observations and references paths are required",
			domain.ErrInvalidConfiguration)
	}

	if opts.trace {
		shutdown, err := setupTracing(stderr)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("failed to flush traces", "error", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(registry)
	if opts.metricsAddr != "" {
		stop, err := serveMetrics(opts.metricsAddr, registry, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	providers := application.NewProviderRegistry(application.ProviderDeps{
		Metrics: metrics,
		Logger:  logger,
	})
	provider, err := providers.Build(cfg.Provider)
	if err != nil {
		return err
	}

	engine, err := application.NewEngine(provider, cfg,
		application.WithMetrics(metrics),
		application.WithLogger(logger))
	if err != nil {
		return err
	}

	source := recordio.NewFileSource(cfg.Inputs.Observations, cfg.Inputs.References, logger)
	sink := recordio.NewFileSink(cfg.Output.Results, cfg.Output.Report)

	report, err := engine.Execute(ctx, source, sink)
	if err != nil {
		return err
	}

	printSummary(stdout, report, cfg.Output)
	return nil
}

// runGenerate produces test questions and writes them to the configured
// output file.
func runGenerate(ctx context.Context, stdout io.Writer, opts generateOptions, changed func(string) bool) error {
	logger := slog.Default()

	loader, err := application.NewConfigLoader()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(loader, opts.configPath)
	if err != nil {
		return err
	}
	applyGenerateOverrides(&cfg, opts, changed)
	if err := loader.Validate(cfg); err != nil {
		return err
	}
	gen := cfg.Generation
	if gen.Mode == application.GenerateInContext && cfg.Inputs.References == "" {
		return fmt.Errorf("%w: references path is required for in_context generation",
			domain.ErrInvalidConfiguration)
	}

	var references []domain.ReferenceExchange
	if gen.Mode == application.GenerateInContext {
		if references, err = recordio.LoadReferences(ctx, cfg.Inputs.References, logger); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(registry)
	providers := application.NewProviderRegistry(application.ProviderDeps{
		Metrics: metrics,
		Logger:  logger,
	})
	client, err := providers.BuildCompletion(gen)
	if err != nil {
		return err
	}

	generator, err := application.NewQuestionGenerator(client, application.GeneratorConfigFrom(gen),
		application.WithMetrics(metrics),
		application.WithLogger(logger))
	if err != nil {
		return err
	}
	questions, err := generator.Generate(ctx, references)
	if err != nil {
		return err
	}
	if err := recordio.WriteQuestions(gen.Output, questions); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Generated %d of %d %s questions\n", len(questions), gen.Count, gen.Mode)
	fmt.Fprintf(stdout, "Questions written to %s\n", gen.Output)
	return nil
}

// runValidate loads configPath and reports whether it is valid.
func runValidate(stdout io.Writer, configPath string) error {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return err
	}
	cfg, err := loader.LoadFromFile(configPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s is valid\n", configPath)
	fmt.Fprintf(stdout, "- Provider: %s\n", describeProvider(cfg.Provider))
	fmt.Fprintf(stdout, "- Selection: %s (question > %.2f, answer > %.2f)\n",
		cfg.Matching.Selection, cfg.Matching.QuestionThreshold, cfg.Matching.AnswerThreshold)
	fmt.Fprintf(stdout, "- Classification: successful >= %.2f%%, risky >= %.2f%%\n",
		cfg.Classification.SuccessThreshold, cfg.Classification.RiskyThreshold)
	return nil
}

func loadConfig(loader *application.ConfigLoader, path string) (application.EngineConfig, error) {
	if path == "" {
		return application.DefaultEngineConfig(), nil
	}
	return loader.LoadFromFile(path)
}

// applyOverrides copies the flags the user set onto cfg.
func applyOverrides(cfg *application.EngineConfig, opts runOptions, changed func(string) bool) {
	if changed("observations") {
		cfg.Inputs.Observations = opts.observations
	}
	if changed("references") {
		cfg.Inputs.References = opts.references
	}
	if changed("output") {
		cfg.Output.Results = opts.results
	}
	if changed("report") {
		cfg.Output.Report = opts.report
	}
	if changed("workers") {
		cfg.Matching.Workers = opts.workers
	}
}

func applyGenerateOverrides(cfg *application.EngineConfig, opts generateOptions, changed func(string) bool) {
	if changed("references") {
		cfg.Inputs.References = opts.references
	}
	if changed("output") {
		cfg.Generation.Output = opts.output
	}
	if changed("mode") {
		cfg.Generation.Mode = application.GenerationMode(opts.mode)
	}
	if changed("count") {
		cfg.Generation.Count = opts.count
	}
	if changed("language") {
		cfg.Generation.Language = opts.language
	}
	if changed("context") {
		cfg.Generation.Context = opts.context
	}
}

// setupTracing installs a tracer provider that prints spans to w.
func setupTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// serveMetrics exposes registry on addr until the returned stop is called.
func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}

func printSummary(w io.Writer, report *domain.Report, out application.OutputConfig) {
	s := report.Summary
	fmt.Fprintf(w, "Verification run %s\n", report.RunID)
	fmt.Fprintf(w, "- Total: %d\n", s.Total)
	fmt.Fprintf(w, "- Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "- Risky: %d\n", s.Risky)
	fmt.Fprintf(w, "- Unsuccessful: %d (no match: %d)\n", s.Unsuccessful, s.NoMatch)
	fmt.Fprintf(w, "- Average similarity: %.2f%%\n", s.AverageSimilarity)
	fmt.Fprintf(w, "- Success rate: %.2f%%\n", s.SuccessRate)
	if out.Results != "" {
		fmt.Fprintf(w, "Results written to %s\n", out.Results)
	}
	if out.Report != "" {
		fmt.Fprintf(w, "Report written to %s\n", out.Report)
	}
}

func describeProvider(p application.ProviderConfig) string {
	parts := []string{p.Type}
	if p.JudgeBackend != "" {
		parts = append(parts, "backend="+p.JudgeBackend)
	}
	if p.Model != "" {
		parts = append(parts, "model="+p.Model)
	}
	return strings.Join(parts, " ")
}

// parseLogLevel maps a flag value to a slog level.
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/ports"
)

// Engine runs the full verification pipeline: match, classify, aggregate.
// It holds no state between runs.
type Engine struct {
	matcher    *Matcher
	classifier *Classifier
	provider   string
	metrics    ports.MetricsCollector
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewEngine wires a Matcher and Classifier around provider using cfg.
// The provider is used as given; the engine never substitutes another one.
func NewEngine(provider ports.SimilarityProvider, cfg EngineConfig, opts ...Option) (*Engine, error) {
	matcher, err := NewMatcher(provider, MatcherConfigFrom(cfg.Matching), opts...)
	if err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(cfg.Classification.SuccessThreshold, cfg.Classification.RiskyThreshold)
	if err != nil {
		return nil, err
	}

	o := collectOptions(opts)
	return &Engine{
		matcher:    matcher,
		classifier: classifier,
		provider:   provider.Name(),
		metrics:    o.metrics,
		logger:     o.logger,
		tracer:     otel.Tracer("verity-engine"),
		now:        o.now,
	}, nil
}

// Run verifies observations against references.
// Empty inputs are not an error: no observations yields an empty report and
// no references marks every observation as unmatched.
// On any error Run returns a nil report; partial results are never exposed.
func (e *Engine) Run(
	ctx context.Context,
	observations []domain.ObservedExchange,
	references []domain.ReferenceExchange,
) (*domain.Report, error) {
	runID := uuid.NewString()
	started := e.now()

	ctx, span := e.tracer.Start(ctx, "Engine.Run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("observations.count", len(observations)),
			attribute.Int("references.count", len(references)),
			attribute.String("provider", e.provider),
		),
	)
	defer span.End()

	logger := e.logger.With("run_id", runID)
	logger.Info("verification run started",
		"observation_count", len(observations),
		"reference_count", len(references),
		"provider", e.provider)
	if len(references) == 0 && len(observations) > 0 {
		logger.Warn("reference set is empty, every observation will be unmatched")
	}

	matched, err := e.matcher.MatchAll(ctx, observations, references)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "matching failed")
		logger.Error("verification run failed", "error", err)
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	records := e.classifier.ClassifyAll(matched)
	summary := Aggregate(records)
	duration := e.now().Sub(started)

	e.recordOutcome(records, summary, duration)

	span.SetAttributes(
		attribute.Int("summary.successful", summary.Successful),
		attribute.Int("summary.risky", summary.Risky),
		attribute.Int("summary.unsuccessful", summary.Unsuccessful),
		attribute.Float64("summary.success_rate", summary.SuccessRate),
	)
	span.SetStatus(codes.Ok, "")

	logger.Info("verification run completed",
		"total", summary.Total,
		"successful", summary.Successful,
		"risky", summary.Risky,
		"unsuccessful", summary.Unsuccessful,
		"no_match", summary.NoMatch,
		"average_similarity", summary.AverageSimilarity,
		"success_rate", summary.SuccessRate,
		"duration", duration)

	return &domain.Report{
		RunID:     runID,
		StartedAt: started,
		Duration:  duration,
		Records:   records,
		Summary:   summary,
	}, nil
}

// Execute loads both collections from source, runs them and hands the
// report to sink. Nothing is written when the run fails.
func (e *Engine) Execute(ctx context.Context, source ports.ExchangeSource, sink ports.ResultSink) (*domain.Report, error) {
	observations, err := source.LoadObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	references, err := source.LoadReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}

	report, err := e.Run(ctx, observations, references)
	if err != nil {
		return nil, err
	}

	if err := sink.WriteReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	return report, nil
}

func (e *Engine) recordOutcome(records []domain.ComparisonRecord, summary domain.BatchSummary, duration time.Duration) {
	for _, r := range records {
		e.metrics.RecordCounter("dispositions_total", 1, map[string]string{
			"disposition": string(r.Disposition),
		})
	}

	labels := map[string]string{"provider": e.provider}
	e.metrics.RecordGauge("batch_total", float64(summary.Total), labels)
	e.metrics.RecordGauge("batch_success_rate", summary.SuccessRate, labels)
	e.metrics.RecordGauge("batch_average_similarity", summary.AverageSimilarity, labels)
	e.metrics.RecordLatency("engine_run", duration, labels)
}

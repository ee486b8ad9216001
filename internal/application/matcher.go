package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/ports"
)

// MatcherConfig holds the thresholds and limits a Matcher applies.
type MatcherConfig struct {
	// QuestionThreshold must be strictly exceeded for a reference to match.
	QuestionThreshold float64 `validate:"min=0,max=1"`
	// AnswerThreshold must be strictly exceeded for a semantic match.
	AnswerThreshold float64 `validate:"min=0,max=1"`
	// Selection picks between first-match and best-match.
	Selection SelectionPolicy `validate:"required,oneof=first best"`
	// Workers bounds concurrent observations in MatchAll.
	Workers int `validate:"min=1,max=64"`
	// CallTimeout bounds each similarity call. Zero disables the bound.
	CallTimeout time.Duration `validate:"min=0s"`
}

// MatcherConfigFrom extracts the matcher settings from an engine config.
func MatcherConfigFrom(cfg MatchingConfig) MatcherConfig {
	return MatcherConfig{
		QuestionThreshold: cfg.QuestionThreshold,
		AnswerThreshold:   cfg.AnswerThreshold,
		Selection:         cfg.Selection,
		Workers:           cfg.Workers,
		CallTimeout:       cfg.CallTimeout,
	}
}

// Matcher pairs each observed exchange with at most one reference entry by
// question similarity and then scores the answers against each other.
// A Matcher is safe for concurrent use when its provider is.
type Matcher struct {
	provider ports.SimilarityProvider
	config   MatcherConfig
	metrics  ports.MetricsCollector
	logger   *slog.Logger
	tracer   trace.Tracer
}

// preparedReference caches the normalized text of one reference entry so
// MatchAll normalizes each reference once rather than once per observation.
type preparedReference struct {
	raw      domain.ReferenceExchange
	question string
	answer   string
}

// NewMatcher creates a Matcher over provider.
// It returns an error if provider is nil or config is out of range.
func NewMatcher(provider ports.SimilarityProvider, config MatcherConfig, opts ...Option) (*Matcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: similarity provider cannot be nil", domain.ErrInvalidConfiguration)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: invalid matcher config: %v", domain.ErrInvalidConfiguration, err)
	}

	o := collectOptions(opts)
	return &Matcher{
		provider: provider,
		config:   config,
		metrics:  o.metrics,
		logger:   o.logger,
		tracer:   otel.Tracer("verity-matcher"),
	}, nil
}

// Match pairs a single observation with the reference set.
// Errors are *domain.ProviderFailureError values with observation index 0.
func (m *Matcher) Match(
	ctx context.Context,
	observed domain.ObservedExchange,
	references []domain.ReferenceExchange,
) (domain.ComparisonRecord, error) {
	return m.match(ctx, 0, observed, prepareReferences(references))
}

// MatchAll matches every observation and returns one record per
// observation in input order. Observations run on up to Workers goroutines.
// The first provider failure cancels the batch and no partial result is
// returned.
func (m *Matcher) MatchAll(
	ctx context.Context,
	observations []domain.ObservedExchange,
	references []domain.ReferenceExchange,
) ([]domain.ComparisonRecord, error) {
	records := make([]domain.ComparisonRecord, len(observations))
	if len(observations) == 0 {
		return records, nil
	}

	refs := prepareReferences(references)
	if err := m.warm(ctx, refs); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Workers)

	for i, obs := range observations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := m.match(gctx, i, obs, refs)
			if err != nil {
				return err
			}
			// Each goroutine owns exactly one slot.
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// warmer is implemented by providers that can precompute state for a known
// set of texts, such as batch-embedding every reference question up front.
type warmer interface {
	Warm(ctx context.Context, texts []string) error
}

func (m *Matcher) warm(ctx context.Context, refs []preparedReference) error {
	w, ok := m.provider.(warmer)
	if !ok || len(refs) == 0 {
		return nil
	}
	questions := make([]string, len(refs))
	for i, r := range refs {
		questions[i] = r.question
	}
	// The batch is one provider call and shares the per-call bound.
	if m.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.CallTimeout)
		defer cancel()
	}
	if err := w.Warm(ctx, questions); err != nil {
		return domain.NewProviderFailureError(domain.StageQuestion, -1, domain.NoReferenceIndex, err)
	}
	return nil
}

func prepareReferences(references []domain.ReferenceExchange) []preparedReference {
	refs := make([]preparedReference, len(references))
	for i, r := range references {
		refs[i] = preparedReference{
			raw:      r,
			question: domain.Normalize(r.Question),
			answer:   domain.Normalize(r.ExpectedAnswer),
		}
	}
	return refs
}

func (m *Matcher) match(
	ctx context.Context,
	index int,
	observed domain.ObservedExchange,
	refs []preparedReference,
) (domain.ComparisonRecord, error) {
	ctx, span := m.tracer.Start(ctx, "Matcher.Match",
		trace.WithAttributes(
			attribute.Int("observation.index", index),
			attribute.Int("references.count", len(refs)),
			attribute.String("selection", string(m.config.Selection)),
			attribute.String("provider", m.provider.Name()),
		),
	)
	defer span.End()

	question := domain.Normalize(observed.Question)

	bestIndex := domain.NoReferenceIndex
	bestScore := 0.0
	for j, ref := range refs {
		score, err := m.score(ctx, domain.StageQuestion, question, ref.question)
		if err != nil {
			failure := domain.NewProviderFailureError(domain.StageQuestion, index, j, err)
			span.RecordError(failure)
			span.SetStatus(codes.Error, "question similarity failed")
			return domain.ComparisonRecord{}, failure
		}
		if score <= m.config.QuestionThreshold {
			continue
		}
		if bestIndex == domain.NoReferenceIndex || score > bestScore {
			bestIndex, bestScore = j, score
		}
		if m.config.Selection == SelectFirst {
			break
		}
	}

	if bestIndex == domain.NoReferenceIndex {
		span.SetAttributes(attribute.String("status", string(domain.StatusNoMatch)))
		m.logger.Debug("no reference matched",
			"observation", index,
			"question_threshold", m.config.QuestionThreshold)
		return domain.NewUnmatchedRecord(observed), nil
	}

	ref := refs[bestIndex]
	answerScore, err := m.score(ctx, domain.StageAnswer, domain.Normalize(observed.Answer), ref.answer)
	if err != nil {
		failure := domain.NewProviderFailureError(domain.StageAnswer, index, bestIndex, err)
		span.RecordError(failure)
		span.SetStatus(codes.Error, "answer similarity failed")
		return domain.ComparisonRecord{}, failure
	}

	status := domain.StatusAnswerMismatch
	if answerScore > m.config.AnswerThreshold {
		status = domain.StatusSemanticMatch
	}

	span.SetAttributes(
		attribute.Int("reference.index", bestIndex),
		attribute.Float64("question.similarity", bestScore),
		attribute.Float64("answer.similarity", answerScore),
		attribute.String("status", string(status)),
	)

	return domain.NewMatchedRecord(observed, ref.raw, bestIndex, bestScore, answerScore, status), nil
}

// score calls the provider under the per-call timeout and rejects results
// outside [0,1].
func (m *Matcher) score(ctx context.Context, stage, a, b string) (float64, error) {
	if m.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	s, err := m.provider.Similarity(ctx, a, b)
	elapsed := time.Since(start)

	if err == nil && (math.IsNaN(s) || s < 0 || s > 1) {
		err = fmt.Errorf("%w: similarity %v outside [0,1]", ports.ErrInvalidResponse, s)
	}

	status := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	labels := map[string]string{
		"provider": m.provider.Name(),
		"stage":    stage,
		"status":   status,
	}
	m.metrics.RecordCounter("similarity_requests_total", 1, labels)
	m.metrics.RecordHistogram("similarity_latency_seconds", elapsed.Seconds(), map[string]string{
		"provider": m.provider.Name(),
		"stage":    stage,
	})

	if err != nil {
		return 0, err
	}
	return s, nil
}

package application

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-verity/internal/ports"
)

// validate is a package-level validator instance for component configs.
var validate = validator.New()

// Option configures the ambient dependencies of a Matcher or Engine.
type Option func(*options)

type options struct {
	metrics ports.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
}

// WithMetrics routes operational metrics to collector.
func WithMetrics(collector ports.MetricsCollector) Option {
	return func(o *options) {
		if collector != nil {
			o.metrics = collector
		}
	}
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func collectOptions(opts []Option) options {
	o := options{
		metrics: discardMetrics{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// discardMetrics is the collector used when none is configured.
type discardMetrics struct{}

var _ ports.MetricsCollector = discardMetrics{}

func (discardMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (discardMetrics) RecordCounter(string, float64, map[string]string)       {}
func (discardMetrics) RecordGauge(string, float64, map[string]string)         {}
func (discardMetrics) RecordHistogram(string, float64, map[string]string)     {}

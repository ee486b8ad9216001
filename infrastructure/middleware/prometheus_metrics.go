// Package middleware provides cross-cutting concerns for the validation
// engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-verity/internal/ports"
)

// Namespace prefixes every exported metric.
const Namespace = "verity"

const unknownLabel = "unknown"

var (
	similarityLabels = []string{"provider", "stage", "status"}
	clientLabels     = []string{"provider", "model", "status"}
	batchLabels      = []string{"provider"}
)

type counterDef struct {
	vec    *prometheus.CounterVec
	labels []string
}

type gaugeDef struct {
	vec    *prometheus.GaugeVec
	labels []string
}

type histogramDef struct {
	vec    *prometheus.HistogramVec
	labels []string
}

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// Known metric names map onto dedicated vectors with fixed label sets.
// Anything else lands in a generic operations counter, gauge, or
// histogram keyed by the metric name, so a new call site never panics.
type PrometheusMetrics struct {
	counters   map[string]counterDef
	gauges     map[string]gaugeDef
	histograms map[string]histogramDef

	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	operationGauges  *prometheus.GaugeVec
	operationValues  *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics and registers its
// metrics with reg. A nil reg uses prometheus.DefaultRegisterer.
// Registering twice with the same registry panics, so tests should pass a
// fresh prometheus.NewRegistry().
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	counter := func(name, help string, labels []string) counterDef {
		return counterDef{
			vec: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: Namespace, Name: name, Help: help,
			}, labels),
			labels: labels,
		}
	}
	gauge := func(name, help string, labels []string) gaugeDef {
		return gaugeDef{
			vec: factory.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: Namespace, Name: name, Help: help,
			}, labels),
			labels: labels,
		}
	}
	histogram := func(name, help string, labels []string) histogramDef {
		return histogramDef{
			vec: factory.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: Namespace, Name: name, Help: help,
				Buckets: prometheus.DefBuckets,
			}, labels),
			labels: labels,
		}
	}

	tokenLabels := append(append([]string(nil), clientLabels...), "token_type")

	return &PrometheusMetrics{
		counters: map[string]counterDef{
			"similarity_requests_total": counter("similarity_requests_total",
				"Similarity provider calls by stage and outcome.", similarityLabels),
			"dispositions_total": counter("dispositions_total",
				"Classified records by disposition.", []string{"disposition"}),
			"llm_requests_total": counter("llm_requests_total",
				"Completion requests sent to LLM providers.", clientLabels),
			"llm_tokens_total": counter("llm_tokens_total",
				"Tokens consumed by completion requests.", tokenLabels),
			"embedding_requests_total": counter("embedding_requests_total",
				"Embedding batch requests sent to providers.", clientLabels),
			"embedding_texts_total": counter("embedding_texts_total",
				"Texts submitted for embedding.", clientLabels),
			"questions_generated_total": counter("questions_generated_total",
				"Test questions produced by the generator.", []string{"mode"}),
		},
		gauges: map[string]gaugeDef{
			"batch_total": gauge("batch_total",
				"Records in the most recent run.", batchLabels),
			"batch_success_rate": gauge("batch_success_rate",
				"Percentage of successful records in the most recent run.", batchLabels),
			"batch_average_similarity": gauge("batch_average_similarity",
				"Average answer similarity percentage in the most recent run.", batchLabels),
		},
		histograms: map[string]histogramDef{
			"similarity_latency_seconds": histogram("similarity_latency_seconds",
				"Similarity provider call latency.", []string{"provider", "stage"}),
			"llm_latency_seconds": histogram("llm_latency_seconds",
				"Completion request latency.", clientLabels),
			"embedding_latency_seconds": histogram("embedding_latency_seconds",
				"Embedding request latency.", clientLabels),
		},

		operationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "provider"}),
		operationCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Counters without a dedicated metric.",
		}, []string{"metric"}),
		operationGauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "system_state",
			Help:      "Gauges without a dedicated metric.",
		}, []string{"metric"}),
		operationValues: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_values",
			Help:      "Histogram observations without a dedicated metric.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation, labelOrUnknown(labels, "provider")).Observe(duration.Seconds())
}

// RecordCounter implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	if def, ok := pm.counters[metric]; ok {
		def.vec.WithLabelValues(labelValues(def.labels, labels)...).Add(value)
		return
	}
	pm.operationCounter.WithLabelValues(metric).Add(value)
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	if def, ok := pm.gauges[metric]; ok {
		def.vec.WithLabelValues(labelValues(def.labels, labels)...).Set(value)
		return
	}
	pm.operationGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if def, ok := pm.histograms[metric]; ok {
		def.vec.WithLabelValues(labelValues(def.labels, labels)...).Observe(value)
		return
	}
	pm.operationValues.WithLabelValues(metric).Observe(value)
}

// labelValues orders labels by names. Missing or empty labels become
// "unknown" so the label set always matches the vector.
func labelValues(names []string, labels map[string]string) []string {
	values := make([]string, len(names))
	for i, n := range names {
		values[i] = labelOrUnknown(labels, n)
	}
	return values
}

func labelOrUnknown(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknownLabel
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

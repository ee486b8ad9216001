package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-verity/internal/ports"
)

// metricsLLM records request counts, latency and token usage for
// completions.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware records llm_requests_total, llm_latency_seconds and
// llm_tokens_total for every completion request.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"provider": m.next.Provider(),
		"model":    m.next.GetModel(),
		"status":   requestStatus(err),
	}
	m.collector.RecordHistogram("llm_latency_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("llm_requests_total", 1, labels)

	if err == nil {
		m.collector.RecordCounter("llm_tokens_total", float64(tokensIn), withLabel(labels, "token_type", "input"))
		m.collector.RecordCounter("llm_tokens_total", float64(tokensOut), withLabel(labels, "token_type", "output"))
	}

	return response, tokensIn, tokensOut, err
}

func (m *metricsLLM) GetModel() string { return m.next.GetModel() }
func (m *metricsLLM) Provider() string { return m.next.Provider() }

// metricsEmbedder records request counts, latency and batch sizes for
// embeddings.
type metricsEmbedder struct {
	next      CoreEmbedder
	collector ports.MetricsCollector
}

// MetricsEmbedMiddleware records embedding_requests_total,
// embedding_latency_seconds and embedding_texts_total.
func MetricsEmbedMiddleware(collector ports.MetricsCollector) EmbedMiddleware {
	return func(next CoreEmbedder) CoreEmbedder {
		return &metricsEmbedder{next: next, collector: collector}
	}
}

func (m *metricsEmbedder) DoEmbed(ctx context.Context, texts []string) ([][]float32, int, error) {
	start := time.Now()
	vectors, tokens, err := m.next.DoEmbed(ctx, texts)

	if m.collector == nil {
		return vectors, tokens, err
	}

	labels := map[string]string{
		"provider": m.next.Provider(),
		"model":    m.next.GetModel(),
		"status":   requestStatus(err),
	}
	m.collector.RecordHistogram("embedding_latency_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("embedding_requests_total", 1, labels)
	if err == nil {
		m.collector.RecordCounter("embedding_texts_total", float64(len(texts)), labels)
	}

	return vectors, tokens, err
}

func (m *metricsEmbedder) GetModel() string { return m.next.GetModel() }
func (m *metricsEmbedder) Provider() string { return m.next.Provider() }

// requestStatus labels an outcome as success, timeout, rate_limit or error.
func requestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case ErrorTypeOf(err) == ErrorTypeRateLimit:
		return "rate_limit"
	default:
		return "error"
	}
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}

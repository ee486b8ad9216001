package llm

import (
	"context"
	"time"
)

// timeoutLLM bounds each completion request.
type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware bounds every completion request by timeout. A request
// that outlives it fails with context.DeadlineExceeded.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{next: next, timeout: timeout}
	}
}

func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, prompt, opts)
}

func (t *timeoutLLM) GetModel() string { return t.next.GetModel() }
func (t *timeoutLLM) Provider() string { return t.next.Provider() }

// timeoutEmbedder bounds each embedding request.
type timeoutEmbedder struct {
	next    CoreEmbedder
	timeout time.Duration
}

// TimeoutEmbedMiddleware bounds every embedding request by timeout.
func TimeoutEmbedMiddleware(timeout time.Duration) EmbedMiddleware {
	return func(next CoreEmbedder) CoreEmbedder {
		return &timeoutEmbedder{next: next, timeout: timeout}
	}
}

func (t *timeoutEmbedder) DoEmbed(ctx context.Context, texts []string) ([][]float32, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoEmbed(ctx, texts)
}

func (t *timeoutEmbedder) GetModel() string { return t.next.GetModel() }
func (t *timeoutEmbedder) Provider() string { return t.next.Provider() }

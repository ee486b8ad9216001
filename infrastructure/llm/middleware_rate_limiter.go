package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedLLM paces completion requests with a token bucket.
type rateLimitedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware allows limit requests per second with bursts of up to
// burst. Every client wrapped by the returned middleware shares one bucket.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{next: next, limiter: limiter}
	}
}

// DoRequest blocks until a token is available or ctx is done.
func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

func (r *rateLimitedLLM) GetModel() string { return r.next.GetModel() }
func (r *rateLimitedLLM) Provider() string { return r.next.Provider() }

// rateLimitedEmbedder paces embedding requests with a token bucket. One
// DoEmbed call consumes one token regardless of batch size, matching how
// providers count requests against quota.
type rateLimitedEmbedder struct {
	next    CoreEmbedder
	limiter *rate.Limiter
}

// RateLimitEmbedMiddleware is the embedding counterpart of
// RateLimitMiddleware. It keeps a parallel matcher within provider quotas.
func RateLimitEmbedMiddleware(limit rate.Limit, burst int) EmbedMiddleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreEmbedder) CoreEmbedder {
		return &rateLimitedEmbedder{next: next, limiter: limiter}
	}
}

func (r *rateLimitedEmbedder) DoEmbed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoEmbed(ctx, texts)
}

func (r *rateLimitedEmbedder) GetModel() string { return r.next.GetModel() }
func (r *rateLimitedEmbedder) Provider() string { return r.next.Provider() }

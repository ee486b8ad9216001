// Package llm provides clients for the model providers behind the similarity
// layer: embedding models (OpenAI, Google, Ollama) for vector similarity and
// completion models (Anthropic, OpenAI) for the judge.
//
// Each provider implements a small core interface and is wrapped by a
// middleware chain for cross-cutting concerns such as rate limiting,
// timeouts, metrics and tracing. There is deliberately no retry middleware:
// any provider failure is surfaced to the engine, which fails the run.
//
// Basic usage:
//
//	embedder, err := llm.NewEmbedder("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "text-embedding-3-small",
//	    EmbedMiddleware: []llm.EmbedMiddleware{
//	        llm.TracingEmbedMiddleware(),
//	        llm.RateLimitEmbedMiddleware(10, 10),
//	    },
//	})
//	vectors, err := embedder.Embed(ctx, []string{"how do i report absence?"})
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ahrav/go-verity/internal/ports"
)

// CoreLLM is the minimal completion interface a provider implements.
type CoreLLM interface {
	// DoRequest sends a prompt and returns the response text with input and
	// output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the configured model name.
	GetModel() string

	// Provider returns the provider name, e.g. "anthropic".
	Provider() string
}

// CoreEmbedder is the minimal embedding interface a provider implements.
type CoreEmbedder interface {
	// DoEmbed returns one vector per text, in input order, and the number of
	// input tokens the provider reported (zero when unknown).
	DoEmbed(ctx context.Context, texts []string) (vectors [][]float32, tokens int, err error)

	// GetModel returns the configured model name.
	GetModel() string

	// Provider returns the provider name, e.g. "openai".
	Provider() string
}

// ClientConfig holds the options shared by completion and embedding clients.
type ClientConfig struct {
	// APIKey authenticates requests. Ollama ignores it.
	APIKey string

	// Model selects the model. Empty means the provider default.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// Timeout bounds each HTTP request. Zero leaves the SDK default.
	Timeout time.Duration

	// HTTPClient replaces the transport used by providers that accept one.
	HTTPClient *http.Client

	// Middleware wraps completion providers, first element outermost.
	Middleware []Middleware

	// EmbedMiddleware wraps embedding providers, first element outermost.
	EmbedMiddleware []EmbedMiddleware
}

// Middleware wraps a CoreLLM to add cross-cutting behavior.
type Middleware func(CoreLLM) CoreLLM

// EmbedMiddleware wraps a CoreEmbedder to add cross-cutting behavior.
type EmbedMiddleware func(CoreEmbedder) CoreEmbedder

// Client implements ports.LLMClient over a middleware-wrapped CoreLLM.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient creates a completion client for providerType.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown completion provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Complete sends prompt to the model and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// GetModel returns the model name of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// EmbedClient implements ports.Embedder over a middleware-wrapped
// CoreEmbedder.
type EmbedClient struct {
	core CoreEmbedder
}

var _ ports.Embedder = (*EmbedClient)(nil)

// NewEmbedder creates an embedding client for providerType.
func NewEmbedder(providerType string, config ClientConfig) (*EmbedClient, error) {
	factory, ok := embedderFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	for i := len(config.EmbedMiddleware) - 1; i >= 0; i-- {
		core = config.EmbedMiddleware[i](core)
	}

	return &EmbedClient{core: core}, nil
}

// Embed returns one vector per text. An empty input makes no request.
// It fails with ErrEmbeddingCount when the provider returns a different
// number of vectors than texts, and with ErrEmptyEmbedding when any vector
// is empty.
func (c *EmbedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, _, err := c.core.DoEmbed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d, got %d", ErrEmbeddingCount, len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: text %d", ErrEmptyEmbedding, i)
		}
	}
	return vectors, nil
}

// GetModel returns the model name of the underlying provider.
func (c *EmbedClient) GetModel() string { return c.core.GetModel() }

// Provider returns the name of the underlying provider.
func (c *EmbedClient) Provider() string { return c.core.Provider() }

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

// EmbedderFactory creates a CoreEmbedder from configuration.
type EmbedderFactory func(ClientConfig) (CoreEmbedder, error)

var (
	providerFactories = map[string]ProviderFactory{}
	embedderFactories = map[string]EmbedderFactory{}
)

// RegisterProviderFactory registers a completion provider under providerType.
// It is intended to be called from init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// RegisterEmbedderFactory registers an embedding provider under providerType.
// It is intended to be called from init functions.
func RegisterEmbedderFactory(providerType string, factory EmbedderFactory) {
	embedderFactories[providerType] = factory
}

package application

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-verity/infrastructure/llm"
	"github.com/ahrav/go-verity/infrastructure/similarity"
	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/ports"
)

// Provider types understood by the default registry.
const (
	ProviderLexical = "lexical"
	ProviderOpenAI  = "openai"
	ProviderGoogle  = "google"
	ProviderOllama  = "ollama"
	ProviderJudge   = "judge"
)

// ProviderDeps carries the process-level collaborators provider factories
// may need.
type ProviderDeps struct {
	// Metrics receives client-level request metrics. Nil disables them.
	Metrics ports.MetricsCollector
	// Logger is passed to providers that log. Defaults to slog.Default().
	Logger *slog.Logger
	// Getenv resolves API keys. Defaults to os.Getenv.
	Getenv func(string) string
	// HTTPClient overrides the transport of network providers.
	HTTPClient *http.Client
}

// ProviderFactory builds a similarity provider from its configuration.
type ProviderFactory func(cfg ProviderConfig, deps ProviderDeps) (ports.SimilarityProvider, error)

// ProviderRegistry maps provider types to factories. A provider is built
// once per process and handed to the engine explicitly.
type ProviderRegistry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	deps      ProviderDeps
}

// NewProviderRegistry returns a registry with the built-in providers
// registered.
func NewProviderRegistry(deps ProviderDeps) *ProviderRegistry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}

	r := &ProviderRegistry{
		factories: make(map[string]ProviderFactory),
		deps:      deps,
	}
	r.registerBuiltinFactories()
	return r
}

func (r *ProviderRegistry) registerBuiltinFactories() {
	r.factories[ProviderLexical] = func(ProviderConfig, ProviderDeps) (ports.SimilarityProvider, error) {
		return similarity.NewLexical(), nil
	}
	for _, name := range []string{ProviderOpenAI, ProviderGoogle, ProviderOllama} {
		r.factories[name] = newEmbeddingProvider
	}
	r.factories[ProviderJudge] = newJudgeProvider
}

// Register adds a factory for providerType. It fails if the type is taken.
func (r *ProviderRegistry) Register(providerType string, factory ProviderFactory) error {
	if providerType == "" {
		return fmt.Errorf("provider type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for %s cannot be nil", providerType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[providerType]; exists {
		return fmt.Errorf("provider type %s is already registered", providerType)
	}
	r.factories[providerType] = factory
	return nil
}

// Build constructs the provider named by cfg.Type.
func (r *ProviderRegistry) Build(cfg ProviderConfig) (ports.SimilarityProvider, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider type %q (available: %v)",
			domain.ErrInvalidConfiguration, cfg.Type, r.Types())
	}

	provider, err := factory(cfg, r.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s provider: %w", cfg.Type, err)
	}
	r.deps.Logger.Debug("similarity provider built",
		"provider_type", cfg.Type,
		"provider", provider.Name(),
		"cache", cfg.Cache)
	return provider, nil
}

// Types returns the registered provider types, sorted.
func (r *ProviderRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Has reports whether providerType is registered.
func (r *ProviderRegistry) Has(providerType string) bool {
	return slices.Contains(r.Types(), providerType)
}

func newEmbeddingProvider(cfg ProviderConfig, deps ProviderDeps) (ports.SimilarityProvider, error) {
	apiKey, err := llm.ResolveAPIKey(cfg.Type, cfg.APIKeyEnv, deps.Getenv)
	if err != nil {
		return nil, err
	}

	embedder, err := llm.NewEmbedder(cfg.Type, llm.ClientConfig{
		APIKey:          apiKey,
		Model:           cfg.Model,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout,
		HTTPClient:      deps.HTTPClient,
		EmbedMiddleware: embedMiddleware(cfg, deps),
	})
	if err != nil {
		return nil, err
	}

	opts := []similarity.EmbeddingOption{
		similarity.WithName(cfg.Type),
		similarity.WithEmbeddingLogger(deps.Logger),
	}
	if cfg.Cache {
		opts = append(opts, similarity.WithCache(similarity.NewMemoryCache(), 0))
	}
	return similarity.NewEmbedding(embedder, opts...)
}

func newJudgeProvider(cfg ProviderConfig, deps ProviderDeps) (ports.SimilarityProvider, error) {
	if cfg.JudgeBackend == "" {
		return nil, fmt.Errorf("%w: judge provider requires judge_backend", domain.ErrInvalidConfiguration)
	}

	client, err := newCompletionClient(cfg.JudgeBackend, cfg, deps)
	if err != nil {
		return nil, err
	}
	return similarity.NewJudge(client, similarity.DefaultJudgeConfig())
}

// BuildCompletion returns the completion client the question generator
// uses, wrapped in the same middleware chain as the judge.
func (r *ProviderRegistry) BuildCompletion(cfg GenerationConfig) (ports.LLMClient, error) {
	client, err := newCompletionClient(cfg.Backend, ProviderConfig{
		Model:     cfg.Model,
		APIKeyEnv: cfg.APIKeyEnv,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
	}, r.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s completion client: %w", cfg.Backend, err)
	}
	return client, nil
}

func newCompletionClient(backend string, cfg ProviderConfig, deps ProviderDeps) (*llm.Client, error) {
	apiKey, err := llm.ResolveAPIKey(backend, cfg.APIKeyEnv, deps.Getenv)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(backend, llm.ClientConfig{
		APIKey:     apiKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		HTTPClient: deps.HTTPClient,
		Middleware: completionMiddleware(cfg, deps),
	})
}

// embedMiddleware orders the chain outermost first: pacing, tracing,
// metrics, then the per-request timeout closest to the provider.
func embedMiddleware(cfg ProviderConfig, deps ProviderDeps) []llm.EmbedMiddleware {
	var chain []llm.EmbedMiddleware
	if cfg.RateLimit > 0 {
		chain = append(chain, llm.RateLimitEmbedMiddleware(rate.Limit(cfg.RateLimit), burst(cfg)))
	}
	chain = append(chain, llm.TracingEmbedMiddleware())
	if deps.Metrics != nil {
		chain = append(chain, llm.MetricsEmbedMiddleware(deps.Metrics))
	}
	if cfg.Timeout > 0 {
		chain = append(chain, llm.TimeoutEmbedMiddleware(cfg.Timeout))
	}
	return chain
}

func completionMiddleware(cfg ProviderConfig, deps ProviderDeps) []llm.Middleware {
	var chain []llm.Middleware
	if cfg.RateLimit > 0 {
		chain = append(chain, llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit), burst(cfg)))
	}
	chain = append(chain, llm.TracingMiddleware())
	if deps.Metrics != nil {
		chain = append(chain, llm.MetricsMiddleware(deps.Metrics))
	}
	if cfg.Timeout > 0 {
		chain = append(chain, llm.TimeoutMiddleware(cfg.Timeout))
	}
	return chain
}

func burst(cfg ProviderConfig) int {
	if cfg.Burst > 0 {
		return cfg.Burst
	}
	return 1
}

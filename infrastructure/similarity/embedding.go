package similarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ahrav/go-verity/internal/ports"
)

var _ ports.SimilarityProvider = (*Embedding)(nil)

// ErrZeroVector is returned when an embedding has no magnitude, which
// leaves cosine similarity undefined.
var ErrZeroVector = errors.New("zero-magnitude embedding")

// EmbeddingOption configures an Embedding provider.
type EmbeddingOption func(*Embedding)

// WithCache memoizes embeddings in store. ttl of zero keeps entries for the
// life of the store.
func WithCache(store ports.CacheStore, ttl time.Duration) EmbeddingOption {
	return func(e *Embedding) {
		e.cache = store
		e.ttl = ttl
	}
}

// WithName overrides the provider name used in logs and metrics.
func WithName(name string) EmbeddingOption {
	return func(e *Embedding) { e.name = name }
}

// WithEmbeddingLogger sets the logger. Defaults to slog.Default().
func WithEmbeddingLogger(logger *slog.Logger) EmbeddingOption {
	return func(e *Embedding) { e.logger = logger }
}

// Embedding scores two strings by the cosine similarity of their
// embeddings, clamped to [0,1]. Negative cosine means unrelated, not
// opposite, for answer validation.
type Embedding struct {
	embedder ports.Embedder
	cache    ports.CacheStore
	ttl      time.Duration
	name     string
	logger   *slog.Logger
}

// NewEmbedding wraps embedder as a SimilarityProvider.
func NewEmbedding(embedder ports.Embedder, opts ...EmbeddingOption) (*Embedding, error) {
	if embedder == nil {
		return nil, errors.New("embedder cannot be nil")
	}

	e := &Embedding{
		embedder: embedder,
		name:     defaultEmbeddingName(embedder),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func defaultEmbeddingName(embedder ports.Embedder) string {
	if p, ok := embedder.(interface{ Provider() string }); ok && p.Provider() != "" {
		return p.Provider()
	}
	return "embedding"
}

// Name implements ports.SimilarityProvider.
func (e *Embedding) Name() string { return e.name }

// Similarity implements ports.SimilarityProvider.
func (e *Embedding) Similarity(ctx context.Context, a, b string) (float64, error) {
	if a == b {
		return 1.0, nil
	}
	if a == "" || b == "" {
		return 0, nil
	}

	vectors, err := e.vectors(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}

	cos, err := cosine(vectors[0], vectors[1])
	if err != nil {
		return 0, err
	}
	return clamp01(cos), nil
}

// Warm embeds texts ahead of scoring so later Similarity calls hit the
// cache. It is a no-op without a cache.
func (e *Embedding) Warm(ctx context.Context, texts []string) error {
	if e.cache == nil || len(texts) == 0 {
		return nil
	}
	_, err := e.vectors(ctx, texts)
	return err
}

// vectors returns one embedding per text, embedding all cache misses in a
// single batch.
func (e *Embedding) vectors(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if e.cache == nil {
		vecs, err := e.embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		copy(out, vecs)
		return out, nil
	}

	var (
		missTexts []string
		missIdx   = make(map[string][]int)
	)
	for i, t := range texts {
		if v, ok, err := e.lookup(ctx, t); err != nil {
			return nil, err
		} else if ok {
			out[i] = v
			continue
		}
		if _, seen := missIdx[t]; !seen {
			missTexts = append(missTexts, t)
		}
		missIdx[t] = append(missIdx[t], i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, t := range missTexts {
		for _, i := range missIdx[t] {
			out[i] = vecs[j]
		}
		if err := e.cache.Set(ctx, e.cacheKey(t), vecs[j], e.ttl); err != nil {
			// A failed write only costs a future re-embed.
			e.logger.WarnContext(ctx, "embedding cache write failed",
				"provider", e.name, "error", err)
		}
	}
	return out, nil
}

func (e *Embedding) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			ports.ErrInvalidResponse, len(texts), len(vecs))
	}
	return vecs, nil
}

func (e *Embedding) lookup(ctx context.Context, text string) ([]float32, bool, error) {
	key := e.cacheKey(text)
	raw, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, false, ports.NewCacheError(key, "get", err)
	}
	if !ok {
		return nil, false, nil
	}
	v, ok := raw.([]float32)
	if !ok {
		return nil, false, ports.NewCacheError(key, "get",
			fmt.Errorf("%w: unexpected type %T", ports.ErrCacheCorrupted, raw))
	}
	return v, true, nil
}

// cacheKey scopes entries by model so a shared store never mixes vector
// spaces.
func (e *Embedding) cacheKey(text string) string {
	return e.embedder.GetModel() + "\x00" + text
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d vs %d", ports.ErrInvalidResponse, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

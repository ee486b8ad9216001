// Package testutils provides deterministic test doubles for the validation
// engine.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/ports"
)

var _ ports.SimilarityProvider = (*StubSimilarity)(nil)

type pairKey struct{ a, b string }

// newPairKey orders the pair so lookups are symmetric.
func newPairKey(a, b string) pairKey {
	a, b = domain.Normalize(a), domain.Normalize(b)
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// StubSimilarity is a SimilarityProvider backed by a lookup table.
// Pairs are normalized and unordered, so Set("Q", "R", s) answers both
// Similarity("q","r") and Similarity("r","q"). Unknown pairs return 1.0
// for identical inputs and Default otherwise.
type StubSimilarity struct {
	mu       sync.Mutex
	scores   map[pairKey]float64
	failures map[pairKey]error
	calls    []pairKey

	// Default is returned for pairs without an entry.
	Default float64
	// Err, when set, is returned by every call.
	Err error
	// Delay is applied before answering. It honors context cancellation.
	Delay time.Duration
	// ProviderName is reported by Name. Defaults to "stub".
	ProviderName string
}

// NewStubSimilarity returns an empty stub.
func NewStubSimilarity() *StubSimilarity {
	return &StubSimilarity{
		scores:   make(map[pairKey]float64),
		failures: make(map[pairKey]error),
	}
}

// Set records the score for the unordered pair (a, b).
func (s *StubSimilarity) Set(a, b string, score float64) *StubSimilarity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[newPairKey(a, b)] = score
	return s
}

// FailOn makes calls for the pair (a, b) return err.
func (s *StubSimilarity) FailOn(a, b string, err error) *StubSimilarity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[newPairKey(a, b)] = err
	return s
}

// Name implements ports.SimilarityProvider.
func (s *StubSimilarity) Name() string {
	if s.ProviderName != "" {
		return s.ProviderName
	}
	return "stub"
}

// Similarity implements ports.SimilarityProvider.
func (s *StubSimilarity) Similarity(ctx context.Context, a, b string) (float64, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	key := newPairKey(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, key)

	if s.Err != nil {
		return 0, s.Err
	}
	if err, ok := s.failures[key]; ok {
		return 0, err
	}
	if score, ok := s.scores[key]; ok {
		return score, nil
	}
	if key.a == key.b {
		return 1.0, nil
	}
	return s.Default, nil
}

// CallCount returns the number of Similarity calls made.
func (s *StubSimilarity) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Called reports whether the pair (a, b) was scored.
func (s *StubSimilarity) Called(a, b string) bool {
	key := newPairKey(a, b)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == key {
			return true
		}
	}
	return false
}

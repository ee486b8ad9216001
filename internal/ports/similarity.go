// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-verity/internal/domain"
)

// SimilarityProvider scores how semantically close two strings are.
// The engine treats it as an external capability: given two normalized
// strings it returns a score in [0,1].
//
// Implementations must be:
//   - symmetric: Similarity(a, b) == Similarity(b, a) within float tolerance
//   - reflexive: Similarity(a, a) == 1.0 for non-empty a
//   - safe for concurrent use, since the matcher may run a worker pool
//
// Any returned error is treated as fatal for the current run. The engine
// never falls back to another comparison and never retries.
type SimilarityProvider interface {
	// Similarity returns the similarity of a and b in [0,1].
	Similarity(ctx context.Context, a, b string) (float64, error)

	// Name identifies the provider for logs and metrics.
	Name() string
}

// ExchangeSource loads the two input collections of a run.
// Implementations skip and report malformed records rather than coercing
// missing text to empty strings.
type ExchangeSource interface {
	// LoadObservations returns the agent transcript turns in order.
	LoadObservations(ctx context.Context) ([]domain.ObservedExchange, error)

	// LoadReferences returns the ground-truth rows in order.
	LoadReferences(ctx context.Context) ([]domain.ReferenceExchange, error)
}

// ResultSink persists the output of a run.
type ResultSink interface {
	// WriteReport stores the classified records and summary.
	WriteReport(ctx context.Context, report *domain.Report) error
}

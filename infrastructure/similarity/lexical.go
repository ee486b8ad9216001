// Package similarity provides ports.SimilarityProvider implementations:
// embedding cosine similarity, normalized edit distance, and an LLM judge.
//
// All providers expect inputs that have already been passed through
// domain.Normalize and are safe for concurrent use.
package similarity

import (
	"context"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-verity/internal/ports"
)

var _ ports.SimilarityProvider = (*Lexical)(nil)

// LexicalName is the provider name reported by Lexical.
const LexicalName = "lexical"

// Lexical scores strings by normalized Levenshtein distance:
// 1 - distance/maxRuneLength. It needs no network and is fully
// deterministic, which makes it the offline provider.
type Lexical struct{}

// NewLexical returns a Lexical provider.
func NewLexical() *Lexical { return &Lexical{} }

// Name implements ports.SimilarityProvider.
func (*Lexical) Name() string { return LexicalName }

// Similarity implements ports.SimilarityProvider.
func (*Lexical) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return editSimilarity(a, b), nil
}

func editSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	// Distance is computed over runes, so the bound must be too.
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

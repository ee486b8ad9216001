package similarity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexical_Similarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "contact hr", b: "contact hr", want: 1},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "abc", b: "", want: 0},
		{name: "single substitution", a: "kitten", b: "sitten", want: 1 - 1.0/6},
		{name: "classic pair", a: "kitten", b: "sitting", want: 1 - 3.0/7},
		{name: "multibyte runes", a: "café", b: "cafe", want: 0.75},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
	}

	p := NewLexical()
	assert.Equal(t, LexicalName, p.Name())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Similarity(context.Background(), tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)

			rev, err := p.Similarity(context.Background(), tt.b, tt.a)
			require.NoError(t, err)
			assert.InDelta(t, got, rev, 1e-9)
		})
	}
}

func TestLexical_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLexical().Similarity(ctx, "a", "b")
	assert.ErrorIs(t, err, context.Canceled)
}

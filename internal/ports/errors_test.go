package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheError(t *testing.T) {
	err := NewCacheError("text-embedding-3-small\x00how do i report absence?", "Get", ErrCacheCorrupted)

	assert.Contains(t, err.Error(), "cache error: operation=Get")
	assert.ErrorIs(t, err, ErrCacheCorrupted)

	wrapped := fmt.Errorf("embed: %w", err)
	var ce *CacheError
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "Get", ce.Operation)
}

func TestCommonInfrastructureErrors(t *testing.T) {
	errs := []error{ErrInvalidResponse, ErrCacheCorrupted}
	for i, a := range errs {
		for j, b := range errs {
			if i != j {
				assert.NotErrorIs(t, a, b, "sentinels must be distinct")
			}
		}
	}
}

package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()

	assert.Equal(t, 0.75, cfg.Matching.QuestionThreshold)
	assert.Equal(t, 0.75, cfg.Matching.AnswerThreshold)
	assert.Equal(t, SelectFirst, cfg.Matching.Selection)
	assert.Equal(t, 1, cfg.Matching.Workers)
	assert.Equal(t, 30*time.Second, cfg.Matching.CallTimeout)
	assert.Equal(t, 90.0, cfg.Classification.SuccessThreshold)
	assert.Equal(t, 80.0, cfg.Classification.RiskyThreshold)
	assert.Equal(t, ProviderLexical, cfg.Provider.Type)
	assert.True(t, cfg.Provider.Cache)
	assert.Equal(t, "generated_similarity/generated_similarity.json", cfg.Output.Results)
	assert.Equal(t, "generated_reports/semantic_similarity_report.json", cfg.Output.Report)
	assert.Equal(t, GenerateInContext, cfg.Generation.Mode)
	assert.Equal(t, 10, cfg.Generation.Count)
	assert.Equal(t, 2000, cfg.Generation.ChunkSize)
	assert.Equal(t, "anthropic", cfg.Generation.Backend)

	loader, err := NewConfigLoader()
	require.NoError(t, err)
	assert.NoError(t, loader.Validate(cfg), "defaults must be valid on their own")
}

func TestMatcherConfigFrom(t *testing.T) {
	got := MatcherConfigFrom(MatchingConfig{
		QuestionThreshold: 0.6,
		AnswerThreshold:   0.7,
		Selection:         SelectBest,
		Workers:           8,
		CallTimeout:       time.Second,
	})

	assert.Equal(t, MatcherConfig{
		QuestionThreshold: 0.6,
		AnswerThreshold:   0.7,
		Selection:         SelectBest,
		Workers:           8,
		CallTimeout:       time.Second,
	}, got)
}

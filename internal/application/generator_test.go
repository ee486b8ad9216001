package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/testutils"
)

func generatorConfig(mode GenerationMode, count int) GeneratorConfig {
	cfg := GeneratorConfigFrom(DefaultEngineConfig().Generation)
	cfg.Mode = mode
	cfg.Count = count
	return cfg
}

func hrReferences() []domain.ReferenceExchange {
	return []domain.ReferenceExchange{
		{Question: "How do I report absence?", ExpectedAnswer: "Contact HR."},
		{Question: "  ", ExpectedAnswer: "Skipped without a question."},
		{Question: "Who approves leave?", ExpectedAnswer: "Your manager."},
	}
}

func TestNewQuestionGenerator_Validation(t *testing.T) {
	client := testutils.NewMockLLMClient("mock")
	tests := []struct {
		name   string
		client *testutils.MockLLMClient
		mutate func(*GeneratorConfig)
	}{
		{name: "nil client"},
		{name: "zero count", client: client, mutate: func(c *GeneratorConfig) { c.Count = 0 }},
		{name: "unknown mode", client: client, mutate: func(c *GeneratorConfig) { c.Mode = "interview" }},
		{name: "no language", client: client, mutate: func(c *GeneratorConfig) { c.Language = "" }},
		{name: "zero chunk size", client: client, mutate: func(c *GeneratorConfig) { c.ChunkSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := generatorConfig(GenerateInContext, 3)
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			var err error
			if tt.client == nil {
				_, err = NewQuestionGenerator(nil, cfg)
			} else {
				_, err = NewQuestionGenerator(tt.client, cfg)
			}
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestQuestionGenerator_InContext(t *testing.T) {
	client := testutils.NewMockLLMClient("mock").
		AddResponse(testutils.MockResponse{Pattern: "Summarize the following", Response: "Absence goes to HR and managers approve leave."}).
		AddResponse(testutils.MockResponse{Pattern: "Generate 3 questions", Response: "Here are some questions:\n" +
			"1. How do I report absence?\n\n" +
			"2) Who approves my leave?\n" +
			"- \"Where do I find HR?\"\n" +
			"4. One too many?"})

	metrics := newRecordingMetrics()
	cfg := generatorConfig(GenerateInContext, 3)
	cfg.ChunkSize = 40
	g, err := NewQuestionGenerator(client, cfg, WithMetrics(metrics))
	require.NoError(t, err)

	got, err := g.Generate(context.Background(), hrReferences())
	require.NoError(t, err)
	assert.Equal(t, []domain.GeneratedQuestion{
		{ID: 1, Question: "How do I report absence?"},
		{ID: 2, Question: "Who approves my leave?"},
		{ID: 3, Question: "Where do I find HR?"},
	}, got)

	prompts := client.Prompts()
	require.Len(t, prompts, 4, "two chunk summaries, one combined summary, one generation")
	assert.Contains(t, prompts[0], "How do I report absence? Contact HR.")
	assert.NotContains(t, strings.Join(prompts, "\n"), "Skipped without a question")
	assert.Contains(t, prompts[2], "Absence goes to HR and managers approve leave. Absence goes to HR")
	assert.Contains(t, prompts[3], "in English")
	assert.Equal(t, 3.0, metrics.counter("questions_generated_total:in_context"))
}

func TestQuestionGenerator_SummarizeSingleChunk(t *testing.T) {
	client := testutils.NewMockLLMClient("mock").
		AddResponse(testutils.MockResponse{Pattern: "Summarize", Response: "HR handles absence."})
	g, err := NewQuestionGenerator(client, generatorConfig(GenerateInContext, 1))
	require.NoError(t, err)

	summary, err := g.Summarize(context.Background(), hrReferences())
	require.NoError(t, err)
	assert.Equal(t, "HR handles absence.", summary)
	assert.Len(t, client.Prompts(), 1, "no combining pass for a single chunk")
}

func TestQuestionGenerator_OutOfContext(t *testing.T) {
	client := testutils.NewMockLLMClient("mock").
		AddResponse(testutils.MockResponse{Pattern: "question 1 in", Response: `Question 1: "What is the capital of France?"`}).
		AddResponse(testutils.MockResponse{Pattern: "question 2 in", Response: "   "}).
		AddResponse(testutils.MockResponse{Pattern: "question 3 in", Response: "How tall is\nMount Everest?"})

	cfg := generatorConfig(GenerateOutOfContext, 3)
	cfg.Language = "Danish"
	cfg.Context = "geography"
	g, err := NewQuestionGenerator(client, cfg)
	require.NoError(t, err)

	got, err := g.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.GeneratedQuestion{
		{ID: 1, Question: "What is the capital of France?"},
		{ID: 2, Question: "How tall is Mount Everest?"},
	}, got)

	prompts := client.Prompts()
	require.Len(t, prompts, 3)
	assert.Contains(t, prompts[0], "in Danish without specific context")
	assert.Contains(t, prompts[0], "geography")
}

func TestQuestionGenerator_Failures(t *testing.T) {
	t.Run("client error aborts", func(t *testing.T) {
		cause := errors.New("quota exhausted")
		client := testutils.NewMockLLMClient("mock")
		client.Err = cause
		g, err := NewQuestionGenerator(client, generatorConfig(GenerateOutOfContext, 5))
		require.NoError(t, err)

		got, err := g.Generate(context.Background(), nil)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, cause)
		assert.ErrorContains(t, err, "generate question 1")
		assert.Len(t, client.Prompts(), 1)
	})

	t.Run("references without text", func(t *testing.T) {
		client := testutils.NewMockLLMClient("mock")
		g, err := NewQuestionGenerator(client, generatorConfig(GenerateInContext, 2))
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), []domain.ReferenceExchange{{Question: "q"}})
		assert.ErrorIs(t, err, domain.ErrMalformedInput)
		assert.Empty(t, client.Prompts())
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := testutils.NewMockLLMClient("mock")
		g, err := NewQuestionGenerator(client, generatorConfig(GenerateInContext, 2))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = g.Generate(ctx, hrReferences())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestChunkWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "empty", text: "  ", size: 10, want: nil},
		{name: "fits", text: "a b c", size: 10, want: []string{"a b c"}},
		{name: "exact boundary", text: "abc def ghi", size: 7, want: []string{"abc def", "ghi"}},
		{name: "long word alone", text: "a enormousword b", size: 4, want: []string{"a", "enormousword", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkWords(tt.text, tt.size))
		})
	}
}

func TestCleanQuestion(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "Question 4: What is PTO?", want: "What is PTO?"},
		{raw: "q: Where is HR?", want: "Where is HR?"},
		{raw: `"Who is my manager?"`, want: "Who is my manager?"},
		{raw: "What time:\n9 or 10?", want: "What time: 9 or 10?"},
		{raw: "Quarterly bonus?", want: "Quarterly bonus?"},
		{raw: "\n\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanQuestion(tt.raw))
		})
	}
}

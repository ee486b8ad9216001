package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedder_DoEmbed(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		// Return out of order to check placement by index.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.0, 1.0]},
				{"object": "embedding", "index": 0, "embedding": [1.0, 0.0]}
			],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 7, "total_tokens": 7}
		}`))
	}))
	defer server.Close()

	embedder, err := newOpenAIEmbedder(ClientConfig{APIKey: "test-api-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	assert.Equal(t, OpenAIDefaultEmbeddingModel, embedder.GetModel())
	assert.Equal(t, "openai", embedder.Provider())

	vectors, tokens, err := embedder.DoEmbed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, 7, tokens)
	assert.Equal(t, OpenAIDefaultEmbeddingModel, gotBody["model"])
	assert.Equal(t, []any{"first", "second"}, gotBody["input"])
}

func TestOpenAIEmbedder_ErrorHandling(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType ErrorType
	}{
		{name: "auth", status: http.StatusUnauthorized, wantType: ErrorTypeAuthentication},
		{name: "rate limit", status: http.StatusTooManyRequests, wantType: ErrorTypeRateLimit},
		{name: "server", status: http.StatusServiceUnavailable, wantType: ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "test_error"}}`))
			}))
			defer server.Close()

			embedder, err := newOpenAIEmbedder(ClientConfig{APIKey: "k", BaseURL: server.URL + "/v1"})
			require.NoError(t, err)

			_, _, err = embedder.DoEmbed(context.Background(), []string{"x"})
			require.Error(t, err)

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.status, pe.StatusCode)
		})
	}
}

func TestOpenAIProvider_DoRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		messages := req["messages"].([]any)
		assert.Len(t, messages, 2, "system and user messages")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"score\": 0.4}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 30, "completion_tokens": 6, "total_tokens": 36}
		}`))
	}))
	defer server.Close()

	provider, err := newOpenAIProvider(ClientConfig{APIKey: "k", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	resp, in, out, err := provider.DoRequest(context.Background(), "compare", map[string]any{
		"system":      "You are a strict grader.",
		"temperature": 0.0,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 0.4}`, resp)
	assert.Equal(t, 30, in)
	assert.Equal(t, 6, out)
}

func TestNewOpenAIProvider_Validation(t *testing.T) {
	_, err := newOpenAIEmbedder(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = newOpenAIProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = newOpenAIEmbedder(ClientConfig{APIKey: "k", BaseURL: "ftp://example.com"})
	assert.ErrorContains(t, err, "invalid BaseURL")
}

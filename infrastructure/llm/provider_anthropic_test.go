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

// mockUsage provides a mock structure for token usage information in test responses.
type mockUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// mockContent provides a mock structure for content blocks in test responses.
type mockContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// mockResponse provides a mock structure for a successful API response in tests.
type mockResponse struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []mockContent `json:"content"`
	Model   string        `json:"model"`
	Usage   mockUsage     `json:"usage"`
}

func TestNewAnthropicProvider(t *testing.T) {
	p, err := newAnthropicProvider(ClientConfig{APIKey: "test-api-key"})
	require.NoError(t, err)
	assert.Equal(t, AnthropicDefaultModel, p.GetModel())
	assert.Equal(t, "anthropic", p.Provider())

	_, err = newAnthropicProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}

func TestAnthropicProvider_DoRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		var reqBody map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, AnthropicDefaultModel, reqBody["model"])
		assert.Equal(t, float64(DefaultMaxTokens), reqBody["max_tokens"])

		response := mockResponse{
			ID:   "msg_test_id",
			Type: "message",
			Role: "assistant",
			Content: []mockContent{
				{Type: "text", Text: `{"score": `},
				{Type: "text", Text: `0.9}`},
			},
			Model: AnthropicDefaultModel,
			Usage: mockUsage{InputTokens: 12, OutputTokens: 4},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "test-api-key", BaseURL: server.URL})
	require.NoError(t, err)

	response, tokensIn, tokensOut, err := provider.DoRequest(context.Background(), "compare", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"score": 0.9}`, response, "text blocks are concatenated")
	assert.Equal(t, 12, tokensIn)
	assert.Equal(t, 4, tokensOut)
}

func TestAnthropicProvider_DoRequest_AuthError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, _, _, err = provider.DoRequest(context.Background(), "compare", nil)
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrorTypeAuthentication, pe.Type)
	assert.Equal(t, 1, calls, "SDK retries are disabled")
}

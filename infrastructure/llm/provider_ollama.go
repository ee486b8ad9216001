package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama defaults.
const (
	OllamaDefaultBaseURL        = "http://localhost:11434"
	OllamaDefaultEmbeddingModel = "nomic-embed-text"
	ollamaDefaultTimeout        = 60 * time.Second
	// maxErrorBody bounds how much of an error response is kept in messages.
	maxErrorBody = 4096
)

func init() {
	RegisterEmbedderFactory("ollama", newOllamaEmbedder)
}

// ollamaEmbedder implements CoreEmbedder against a local Ollama server.
// The server embeds one prompt per request, so DoEmbed issues one request
// per text in order and stops at the first failure.
type ollamaEmbedder struct {
	BaseProvider
	baseURL         string
	client          *http.Client
	errorClassifier *ErrorClassifier
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func newOllamaEmbedder(config ClientConfig) (CoreEmbedder, error) {
	baseURL := OllamaDefaultBaseURL
	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		baseURL = strings.TrimRight(validatedURL, "/")
	}

	model := config.Model
	if model == "" {
		model = OllamaDefaultEmbeddingModel
	}

	client := httpClientFor(config)
	if client == nil {
		client = &http.Client{Timeout: ollamaDefaultTimeout}
	}

	return &ollamaEmbedder{
		BaseProvider:    BaseProvider{provider: "ollama", model: model},
		baseURL:         baseURL,
		client:          client,
		errorClassifier: &ErrorClassifier{Provider: "ollama"},
	}, nil
}

// DoEmbed embeds each text with its own request.
func (o *ollamaEmbedder) DoEmbed(ctx context.Context, texts []string) ([][]float32, int, error) {
	vectors := make([][]float32, len(texts))
	tokens := 0
	for i, text := range texts {
		v, err := o.embedOne(ctx, text)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		vectors[i] = v
		tokens += EstimateTokens(text)
	}
	return vectors, tokens, nil
}

func (o *ollamaEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, o.errorClassifier.ClassifyContextError(err)
		}
		return nil, NewProviderError("ollama", ErrorTypeNetwork, 0, "failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, o.errorClassifier.ClassifyHTTPError(resp.StatusCode, strings.TrimSpace(string(msg)), nil)
	}

	var result ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewProviderError("ollama", ErrorTypeUnknown, resp.StatusCode, "failed to decode response", err)
	}
	if len(result.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return result.Embedding, nil
}

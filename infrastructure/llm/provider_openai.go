package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI defaults.
const (
	OpenAIDefaultModel          = "gpt-4o-mini"
	OpenAIDefaultEmbeddingModel = string(openai.SmallEmbedding3)
)

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
	RegisterEmbedderFactory("openai", newOpenAIEmbedder)
}

// openAIProvider implements CoreLLM over the chat completions API.
type openAIProvider struct {
	BaseProvider
	client          *openai.Client
	errorClassifier *ErrorClassifier
}

// openAIEmbedder implements CoreEmbedder over the embeddings API.
type openAIEmbedder struct {
	BaseProvider
	client          *openai.Client
	errorClassifier *ErrorClassifier
}

func newOpenAIClient(config ClientConfig) (*openai.Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	clientConfig := openai.DefaultConfig(config.APIKey)

	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validatedURL
	}

	if hc := httpClientFor(config); hc != nil {
		clientConfig.HTTPClient = hc
	}

	return openai.NewClientWithConfig(clientConfig), nil
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	client, err := newOpenAIClient(config)
	if err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	return &openAIProvider{
		BaseProvider:    BaseProvider{provider: "openai", model: model},
		client:          client,
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

func newOpenAIEmbedder(config ClientConfig) (CoreEmbedder, error) {
	client, err := newOpenAIClient(config)
	if err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultEmbeddingModel
	}

	return &openAIEmbedder{
		BaseProvider:    BaseProvider{provider: "openai", model: model},
		client:          client,
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoRequest sends prompt as a single user message.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.model)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     options.Model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
	}
	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, classifyOpenAIError(p.errorClassifier, err)
	}

	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content
	return content,
		tokenCount(resp.Usage.PromptTokens, prompt),
		tokenCount(resp.Usage.CompletionTokens, content),
		nil
}

// DoEmbed embeds texts in one request. Results are placed by the index the
// API reports rather than by response order.
func (e *openAIEmbedder) DoEmbed(ctx context.Context, texts []string) ([][]float32, int, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, 0, classifyOpenAIError(e.errorClassifier, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, 0, fmt.Errorf("%w: requested %d, got %d", ErrEmbeddingCount, len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, 0, NewProviderError("openai", ErrorTypeUnknown, 0,
				fmt.Sprintf("unexpected embedding index %d", d.Index), ErrEmbeddingCount)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, resp.Usage.PromptTokens, nil
}

// classifyOpenAIError wraps err in a ProviderError.
func classifyOpenAIError(ec *ErrorClassifier, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ec.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return ec.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ec.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err)
	}

	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}

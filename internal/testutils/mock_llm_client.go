package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ahrav/go-verity/internal/ports"
)

var _ ports.LLMClient = (*MockLLMClient)(nil)

// DefaultJudgeResponse is returned when no pattern matches.
const DefaultJudgeResponse = `{"score": 0.5}`

// MockResponse maps a prompt substring to a canned reply.
type MockResponse struct {
	// Pattern is matched case-insensitively against the prompt.
	Pattern string
	// Response is the text returned for matching prompts.
	Response string
}

// MockLLMClient implements ports.LLMClient with deterministic replies
// chosen by substring match, in the order responses were added.
type MockLLMClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	prompts   []string

	// Err, when set, is returned by every call.
	Err error
}

// NewMockLLMClient creates a client for model with no patterns.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{model: model}
}

// AddResponse appends a pattern. Earlier patterns win.
func (m *MockLLMClient) AddResponse(response MockResponse) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
	return m
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, _ map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", errors.New("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)

	if m.Err != nil {
		return "", m.Err
	}

	lower := strings.ToLower(prompt)
	for _, r := range m.responses {
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return r.Response, nil
		}
	}
	return DefaultJudgeResponse, nil
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string { return m.model }

// Prompts returns a copy of every prompt received.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

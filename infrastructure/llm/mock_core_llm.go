package llm

import (
	"context"
	"sync"
	"time"
)

// MockCoreLLM is a configurable CoreLLM for middleware and judge tests.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	CallCount      int
	LastPrompt     string
	LastOpts       map[string]any
	LastContext    context.Context
	CallTimestamps []time.Time
}

// NewMockCoreLLM returns a mock that succeeds with a fixed response.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response:  `{"score": 1.0}`,
		TokensIn:  10,
		TokensOut: 5,
		Model:     "test-model",
	}
}

// DoRequest records the call, waits ResponseDelay unless ctx ends first,
// then returns the configured response or error.
func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastPrompt = prompt
	m.LastOpts = opts
	m.LastContext = ctx
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay, resp, in, out, err := m.ResponseDelay, m.Response, m.TokensIn, m.TokensOut, m.Error
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	if err != nil {
		return "", 0, 0, err
	}
	return resp, in, out, nil
}

// GetModel returns the configured model name.
func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

// Provider returns "mock".
func (m *MockCoreLLM) Provider() string { return "mock" }

// GetCallCount returns the number of DoRequest calls.
func (m *MockCoreLLM) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockCoreEmbedder is a configurable CoreEmbedder. Vectors are looked up by
// text; texts without an entry get Fallback.
type MockCoreEmbedder struct {
	mu sync.Mutex

	Vectors       map[string][]float32
	Fallback      []float32
	Tokens        int
	Error         error
	Model         string
	ResponseDelay time.Duration

	CallCount      int
	TextsEmbedded  int
	LastTexts      []string
	CallTimestamps []time.Time
}

// NewMockCoreEmbedder returns a mock with a two-dimensional fallback vector.
func NewMockCoreEmbedder() *MockCoreEmbedder {
	return &MockCoreEmbedder{
		Vectors:  map[string][]float32{},
		Fallback: []float32{1, 0},
		Tokens:   3,
		Model:    "test-embedding",
	}
}

// DoEmbed records the call, waits ResponseDelay unless ctx ends first,
// then returns one vector per text.
func (m *MockCoreEmbedder) DoEmbed(ctx context.Context, texts []string) ([][]float32, int, error) {
	m.mu.Lock()
	m.CallCount++
	m.TextsEmbedded += len(texts)
	m.LastTexts = append([]string(nil), texts...)
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay, err := m.ResponseDelay, m.Error
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.Vectors[t]; ok {
			vectors[i] = v
		} else {
			vectors[i] = m.Fallback
		}
	}
	tokens := m.Tokens
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	if err != nil {
		return nil, 0, err
	}
	return vectors, tokens, nil
}

// GetModel returns the configured model name.
func (m *MockCoreEmbedder) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

// Provider returns "mock".
func (m *MockCoreEmbedder) Provider() string { return "mock" }

// GetCallCount returns the number of DoEmbed calls.
func (m *MockCoreEmbedder) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

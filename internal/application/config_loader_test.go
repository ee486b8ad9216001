package application

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verity/internal/domain"
)

func newTestLoader(t *testing.T) *ConfigLoader {
	t.Helper()
	loader, err := NewConfigLoader()
	require.NoError(t, err)
	return loader
}

func TestConfigLoader_Parse(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		verify func(t *testing.T, cfg EngineConfig)
	}{
		{
			name: "empty document yields defaults",
			yaml: "",
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, DefaultEngineConfig(), cfg)
			},
		},
		{
			name: "partial override keeps other defaults",
			yaml: `
matching:
  question_threshold: 0.8
  selection: best
`,
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, 0.8, cfg.Matching.QuestionThreshold)
				assert.Equal(t, SelectBest, cfg.Matching.Selection)
				assert.Equal(t, DefaultAnswerThreshold, cfg.Matching.AnswerThreshold)
				assert.Equal(t, DefaultWorkers, cfg.Matching.Workers)
				assert.Equal(t, ProviderLexical, cfg.Provider.Type)
			},
		},
		{
			name: "generation section",
			yaml: `
generation:
  mode: out_of_context
  count: 25
  language: Danish
  backend: openai
  model: gpt-4o-mini
  timeout: 20s
`,
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, GenerateOutOfContext, cfg.Generation.Mode)
				assert.Equal(t, 25, cfg.Generation.Count)
				assert.Equal(t, "Danish", cfg.Generation.Language)
				assert.Equal(t, "openai", cfg.Generation.Backend)
				assert.Equal(t, 20*time.Second, cfg.Generation.Timeout)
				assert.Equal(t, DefaultChunkSize, cfg.Generation.ChunkSize)
			},
		},
		{
			name: "embedding provider with durations",
			yaml: `
matching:
  workers: 4
  call_timeout: 5s
provider:
  type: openai
  model: text-embedding-3-small
  api_key_env: VERITY_OPENAI_KEY
  timeout: 2s
  rate_limit: 10
  burst: 5
  cache: false
inputs:
  observations: data/postman.json
  references: data/reference.csv
`,
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, 4, cfg.Matching.Workers)
				assert.Equal(t, 5*time.Second, cfg.Matching.CallTimeout)
				assert.Equal(t, ProviderOpenAI, cfg.Provider.Type)
				assert.Equal(t, "VERITY_OPENAI_KEY", cfg.Provider.APIKeyEnv)
				assert.Equal(t, 2*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, 10.0, cfg.Provider.RateLimit)
				assert.Equal(t, 5, cfg.Provider.Burst)
				assert.False(t, cfg.Provider.Cache)
				assert.Equal(t, "data/reference.csv", cfg.Inputs.References)
			},
		},
		{
			name: "judge with backend",
			yaml: `
provider:
  type: judge
  judge_backend: anthropic
  base_url: http://localhost:8080
`,
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, ProviderJudge, cfg.Provider.Type)
				assert.Equal(t, "anthropic", cfg.Provider.JudgeBackend)
				assert.Equal(t, "http://localhost:8080", cfg.Provider.BaseURL)
			},
		},
		{
			name: "classification thresholds may be equal",
			yaml: `
classification:
  success_threshold: 85
  risky_threshold: 85
`,
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, 85.0, cfg.Classification.SuccessThreshold)
				assert.Equal(t, 85.0, cfg.Classification.RiskyThreshold)
			},
		},
	}

	loader := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loader.Parse([]byte(tt.yaml))
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestConfigLoader_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg []string
	}{
		{
			name:    "unknown key",
			yaml:    "matching:\n  question_treshold: 0.8\n",
			wantMsg: []string{"YAML decode failed", "question_treshold"},
		},
		{
			name:    "malformed yaml",
			yaml:    "matching: [",
			wantMsg: []string{"YAML decode failed"},
		},
		{
			name:    "threshold above one",
			yaml:    "matching:\n  question_threshold: 1.5\n",
			wantMsg: []string{"matching.question_threshold must be at most 1, got 1.5"},
		},
		{
			name:    "unknown selection",
			yaml:    "matching:\n  selection: random\n",
			wantMsg: []string{"matching.selection must be one of [first best], got random"},
		},
		{
			name:    "too many workers",
			yaml:    "matching:\n  workers: 65\n",
			wantMsg: []string{"matching.workers must be at most 64, got 65"},
		},
		{
			name:    "zero workers",
			yaml:    "matching:\n  workers: 0\n",
			wantMsg: []string{"matching.workers must be at least 1, got 0"},
		},
		{
			name:    "unknown generation mode",
			yaml:    "generation:\n  mode: interview\n",
			wantMsg: []string{"generation.mode must be one of [in_context out_of_context], got interview"},
		},
		{
			name:    "generation count zero",
			yaml:    "generation:\n  count: 0\n",
			wantMsg: []string{"generation.count must be at least 1, got 0"},
		},
		{
			name:    "generation backend without completion",
			yaml:    "generation:\n  backend: ollama\n",
			wantMsg: []string{"generation.backend must be one of [anthropic openai], got ollama"},
		},
		{
			name:    "risky above success",
			yaml:    "classification:\n  success_threshold: 70\n",
			wantMsg: []string{"classification.risky_threshold must not exceed success_threshold"},
		},
		{
			name:    "unknown provider",
			yaml:    "provider:\n  type: cohere\n",
			wantMsg: []string{"provider.type must be one of"},
		},
		{
			name:    "lowercase env name",
			yaml:    "provider:\n  type: openai\n  api_key_env: openai_key\n",
			wantMsg: []string{`provider.api_key_env must be an environment variable name, got "openai_key"`},
		},
		{
			name:    "invalid base url",
			yaml:    "provider:\n  type: ollama\n  base_url: not a url\n",
			wantMsg: []string{"provider.base_url failed url validation"},
		},
		{
			name:    "judge without backend",
			yaml:    "provider:\n  type: judge\n",
			wantMsg: []string{"provider.judge_backend is required when provider.type is judge"},
		},
		{
			name:    "backend without judge",
			yaml:    "provider:\n  type: openai\n  judge_backend: anthropic\n",
			wantMsg: []string{"provider.judge_backend is only valid when provider.type is judge"},
		},
		{
			name:    "burst without rate limit",
			yaml:    "provider:\n  burst: 3\n",
			wantMsg: []string{"provider.burst requires provider.rate_limit"},
		},
		{
			name: "every failure is reported",
			yaml: `
matching:
  answer_threshold: -0.1
provider:
  type: judge
`,
			wantMsg: []string{
				"matching.answer_threshold must be at least 0",
				"provider.judge_backend is required",
			},
		},
	}

	loader := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			for _, msg := range tt.wantMsg {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestConfigLoader_ValidationErrorLists(t *testing.T) {
	loader := newTestLoader(t)

	cfg := DefaultEngineConfig()
	cfg.Matching.Workers = 0
	cfg.Provider.Burst = 2

	err := loader.Validate(cfg)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "engine config", verr.Entity)
	assert.Len(t, verr.Errors, 2)
}

func TestConfigLoader_LoadFromFile(t *testing.T) {
	loader := newTestLoader(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "verity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matching:\n  workers: 2\n"), 0o600))

	cfg, err := loader.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Matching.Workers)

	_, err = loader.LoadFromFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigLoader_LoadFromReader(t *testing.T) {
	loader := newTestLoader(t)

	cfg, err := loader.LoadFromReader(strings.NewReader("output:\n  results: out/results.json\n"))
	require.NoError(t, err)
	assert.Equal(t, "out/results.json", cfg.Output.Results)
	assert.Equal(t, DefaultEngineConfig().Output.Report, cfg.Output.Report)
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "success_threshold", toSnake("SuccessThreshold"))
	assert.Equal(t, "workers", toSnake("Workers"))
}

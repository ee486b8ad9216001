package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIKey(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY": "sk-default",
		"TEAM_OPENAI":    "sk-team",
	}
	getenv := func(k string) string { return env[k] }

	tests := []struct {
		name     string
		provider string
		envVar   string
		want     string
		wantErr  bool
	}{
		{name: "provider default variable", provider: "openai", want: "sk-default"},
		{name: "override variable", provider: "openai", envVar: "TEAM_OPENAI", want: "sk-team"},
		{name: "keyless provider", provider: "ollama", want: ""},
		{name: "missing key", provider: "anthropic", wantErr: true},
		{name: "missing override", provider: "ollama", envVar: "OLLAMA_TOKEN", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAPIKey(tt.provider, tt.envVar, getenv)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrEmptyAPIKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveAPIKey_DefaultsToProcessEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "from-env")

	got, err := ResolveAPIKey("google", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestDefaultProvidersMatchFactories(t *testing.T) {
	for name, d := range DefaultProviders {
		if d.EmbeddingModel != "" {
			assert.True(t, HasEmbeddingProvider(name), "%s declares an embedding model but has no factory", name)
		}
		if d.CompletionModel != "" {
			assert.Contains(t, CompletionProviders(), name)
		}
	}
	assert.False(t, HasEmbeddingProvider("anthropic"))
}

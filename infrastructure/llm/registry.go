package llm

import (
	"fmt"
	"os"
	"slices"
	"sort"
)

// ProviderDefaults describes how a provider is configured when the user
// supplies only its name.
type ProviderDefaults struct {
	// EnvVar names the environment variable holding the API key. Empty
	// means the provider needs no key.
	EnvVar string
	// EmbeddingModel is the default embedding model, if the provider embeds.
	EmbeddingModel string
	// CompletionModel is the default completion model, if the provider
	// completes.
	CompletionModel string
}

// DefaultProviders lists the built-in providers.
var DefaultProviders = map[string]ProviderDefaults{
	"openai": {
		EnvVar:          "OPENAI_API_KEY",
		EmbeddingModel:  OpenAIDefaultEmbeddingModel,
		CompletionModel: OpenAIDefaultModel,
	},
	"google": {
		EnvVar:         "GOOGLE_API_KEY",
		EmbeddingModel: GoogleDefaultEmbeddingModel,
	},
	"ollama": {
		EmbeddingModel: OllamaDefaultEmbeddingModel,
	},
	"anthropic": {
		EnvVar:          "ANTHROPIC_API_KEY",
		CompletionModel: AnthropicDefaultModel,
	},
}

// ResolveAPIKey returns the API key for provider. envVar overrides the
// provider's default variable. Providers without a key return "".
// getenv defaults to os.Getenv.
func ResolveAPIKey(provider, envVar string, getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	name := envVar
	if name == "" {
		name = DefaultProviders[provider].EnvVar
	}
	if name == "" {
		return "", nil
	}

	key := getenv(name)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrEmptyAPIKey, name)
	}
	return key, nil
}

// EmbeddingProviders returns the registered embedding provider names, sorted.
func EmbeddingProviders() []string {
	return sortedKeys(embedderFactories)
}

// CompletionProviders returns the registered completion provider names, sorted.
func CompletionProviders() []string {
	return sortedKeys(providerFactories)
}

// HasEmbeddingProvider reports whether name is a registered embedding provider.
func HasEmbeddingProvider(name string) bool {
	return slices.Contains(EmbeddingProviders(), name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

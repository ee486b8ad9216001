package llm

// DefaultMaxTokens bounds completion length when the caller sets none. The
// judge only needs a short JSON object back.
const DefaultMaxTokens = 256

// BaseProvider carries the identity every provider reports.
type BaseProvider struct {
	provider string
	model    string
}

// GetModel returns the configured model name.
func (b *BaseProvider) GetModel() string { return b.model }

// Provider returns the provider name.
func (b *BaseProvider) Provider() string { return b.provider }

// RequestOptions is the standardized set of completion parameters.
type RequestOptions struct {
	// MaxTokens caps the number of generated tokens.
	MaxTokens int
	// Model overrides the provider's configured model for one request.
	Model string
	// Temperature is nil when the provider default should be used.
	Temperature *float64
	// System carries instructions separate from the user prompt.
	System string
}

// ParseRequestOptions extracts completion parameters from opts, falling
// back to defaults for missing or invalid entries. Unknown keys are ignored.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, "max_tokens", DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, "model", defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, "system", "", nil),
	}

	if temp := ExtractOptionalFloat64(opts, "temperature", -1, IsValidTemperature); temp != -1 {
		options.Temperature = &temp
	}

	return options
}

// EstimateTokens approximates a token count at four bytes per token. It is
// used only when a provider omits usage data.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func tokenCount(actual int, text string) int {
	if actual > 0 {
		return actual
	}
	return EstimateTokens(text)
}

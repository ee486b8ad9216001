package llm

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Valid ranges for request parameters.
const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 10 * time.Minute
)

// IsValidTemperature reports whether val is in [MinTemperature, MaxTemperature].
func IsValidTemperature(val float64) bool {
	return val >= MinTemperature && val <= MaxTemperature
}

// IsPositiveInt reports whether val is greater than zero.
func IsPositiveInt(val int) bool { return val > 0 }

// IsNonEmptyString reports whether val is non-empty.
func IsNonEmptyString(val string) bool { return val != "" }

// ValidateBaseURL validates and normalizes a base URL.
// It requires an http or https scheme and a host. An empty string is valid
// and means the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, but got: %q", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}

	return parsedURL.String(), nil
}

// ValidateTimeout clamps timeout to [MinTimeout, MaxTimeout]. A zero or
// negative timeout returns zero, meaning no transport-level bound.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// httpClientFor returns the HTTP client a provider should use: the one in
// config if set, otherwise a client bounded by config.Timeout, otherwise nil
// so that the SDK keeps its default.
func httpClientFor(config ClientConfig) *http.Client {
	if config.HTTPClient != nil {
		return config.HTTPClient
	}
	if t := ValidateTimeout(config.Timeout); t > 0 {
		return &http.Client{Timeout: t}
	}
	return nil
}

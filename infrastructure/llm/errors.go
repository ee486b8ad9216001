// Package llm errors map SDK and HTTP failures from the embedding and
// completion backends onto ProviderError, so a failed similarity call can be
// labelled the same way whichever backend produced it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyAPIKey      = errors.New("API key cannot be empty")
	ErrEmptyResponse    = errors.New("empty response from API")
	ErrNoResponseChoice = errors.New("no response choices returned")
	ErrEmptyEmbedding   = errors.New("empty embedding returned")
	// ErrEmbeddingCount means the backend returned a different number of
	// vectors than texts were sent.
	ErrEmbeddingCount = errors.New("embedding count mismatch")
)

// ErrorType is the failure category recorded on spans and metric labels.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeServerError
	// ErrorTypeContentPolicy is a request refused by the backend's safety
	// filter rather than rejected as malformed.
	ErrorTypeContentPolicy
	ErrorTypeNetwork
	ErrorTypeTimeout
)

var errorTypeLabels = map[ErrorType]string{
	ErrorTypeAuthentication: "authentication",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeBadRequest:     "bad_request",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeServerError:    "server_error",
	ErrorTypeContentPolicy:  "content_policy",
	ErrorTypeNetwork:        "network",
	ErrorTypeTimeout:        "timeout",
}

// String returns the snake_case label used in logs and metric labels.
func (t ErrorType) String() string {
	if label, ok := errorTypeLabels[t]; ok {
		return label
	}
	return "unknown"
}

// ProviderError is a classified backend failure. StatusCode is zero when
// the call never produced an HTTP response.
type ProviderError struct {
	Type         ErrorType
	Provider     string
	StatusCode   int
	Message      string
	WrappedError error
}

// NewProviderError builds a ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, wrapped error) *ProviderError {
	return &ProviderError{
		Type:         errType,
		Provider:     provider,
		StatusCode:   statusCode,
		Message:      message,
		WrappedError: wrapped,
	}
}

// Error renders as `<provider> error (HTTP n) [type]: message: cause`,
// omitting the parts that are unset.
func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(" error")
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Type != ErrorTypeUnknown {
		fmt.Fprintf(&b, " [%s]", e.Type)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.WrappedError != nil {
		fmt.Fprintf(&b, ": %v", e.WrappedError)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.WrappedError }

// ErrorTypeOf returns the classification of the first ProviderError in
// err's chain. Bare context errors classify as timeout or network.
func ErrorTypeOf(err error) ErrorType {
	var pe *ProviderError
	switch {
	case errors.As(err, &pe):
		return pe.Type
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

// ErrorClassifier turns one backend's failures into ProviderErrors.
type ErrorClassifier struct {
	Provider string
}

// statusErrorType maps an HTTP status to its category. Unlisted 4xx codes
// are bad requests and unlisted 5xx codes are server errors.
func statusErrorType(status int) ErrorType {
	switch {
	case status == 401 || status == 403:
		return ErrorTypeAuthentication
	case status == 429:
		return ErrorTypeRateLimit
	case status == 404:
		return ErrorTypeNotFound
	case status >= 400 && status < 500:
		return ErrorTypeBadRequest
	case status >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// ClassifyHTTPError classifies a failed response by status code.
// Credential and quota failures carry a fixed message in place of the
// backend's.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	errType := statusErrorType(statusCode)
	switch errType {
	case ErrorTypeAuthentication:
		message = ec.Provider + " authentication failed"
	case ErrorTypeRateLimit:
		message = ec.Provider + " rate limit exceeded"
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

// ClassifyContextError classifies a call that ended with its context.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

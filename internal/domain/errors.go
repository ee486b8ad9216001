package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during a verification run.
var (
	// ErrMalformedInput indicates that a source record is missing a required
	// field or carries a value of the wrong type.
	ErrMalformedInput = errors.New("malformed input")

	// ErrProviderFailure indicates that the similarity provider failed or
	// timed out. It is fatal for the run.
	ErrProviderFailure = errors.New("similarity provider failure")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Stages at which a similarity call can fail.
const (
	StageQuestion = "question"
	StageAnswer   = "answer"
)

// ProviderFailureError records which comparison a provider failure
// interrupted. It matches ErrProviderFailure with errors.Is and unwraps to
// the provider's own error.
type ProviderFailureError struct {
	// Stage is StageQuestion or StageAnswer.
	Stage string

	// ObservationIndex is the position of the observation being matched.
	ObservationIndex int

	// ReferenceIndex is the position of the reference being compared.
	ReferenceIndex int

	// Err is the error returned by the provider.
	Err error
}

// Error implements the error interface for ProviderFailureError.
func (e *ProviderFailureError) Error() string {
	return fmt.Sprintf("similarity provider failure: stage=%s, observation=%d, reference=%d: %v",
		e.Stage, e.ObservationIndex, e.ReferenceIndex, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *ProviderFailureError) Unwrap() error { return e.Err }

// Is reports ErrProviderFailure as a match so callers need not know the
// concrete type.
func (e *ProviderFailureError) Is(target error) bool { return target == ErrProviderFailure }

// NewProviderFailureError creates a new ProviderFailureError with the given details.
func NewProviderFailureError(stage string, observation, reference int, err error) *ProviderFailureError {
	return &ProviderFailureError{
		Stage:            stage,
		ObservationIndex: observation,
		ReferenceIndex:   reference,
		Err:              err,
	}
}

// MalformedRecordError describes one skipped source record.
type MalformedRecordError struct {
	// Source names the file or stream the record came from.
	Source string

	// Index is the zero-based position of the record in its source.
	Index int

	// Field is the missing or invalid field.
	Field string

	// Reason explains what was wrong with Field.
	Reason string
}

// Error implements the error interface for MalformedRecordError.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d in %s: field %q %s", e.Index, e.Source, e.Field, e.Reason)
}

// Is reports ErrMalformedInput as a match.
func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedInput }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Is reports ErrInvalidConfiguration as a match.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

package ideation

import (
	"context"
	"errors"
	"fmt"

	"facetforge/internal/llm"
)

// ErrorCode is the machine-readable failure kind reported to the host.
type ErrorCode string

const (
	CodeInvalidAPIKey     ErrorCode = "INVALID_API_KEY"
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeNetworkError      ErrorCode = "NETWORK_ERROR"
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError reports input or backend output that violates the
// expected schema. Index is the offending element, or -1.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("validation error: %s at index %d %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

// Is reports ValidationError as ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func fieldError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Reason: reason}
}

func elementError(field string, index int, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: index, Reason: reason}
}

// Classify maps err onto an ErrorCode. Earlier kinds win when a chain
// matches several.
func Classify(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrMissingAPIKey), errors.Is(err, llm.ErrInvalidAPIKey):
		return CodeInvalidAPIKey
	case errors.Is(err, llm.ErrRateLimited):
		return CodeRateLimitExceeded
	case errors.Is(err, llm.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return CodeNetworkError
	case errors.Is(err, ErrValidation):
		return CodeValidationError
	case errors.Is(err, llm.ErrGenerationFailed):
		return CodeGenerationFailed
	default:
		return CodeInternalError
	}
}

// NewFailure builds the failure envelope for err. Details carries the
// innermost cause when it adds information beyond Message.
func NewFailure(err error) *Failure {
	if err == nil {
		err = errors.New("unknown error")
	}
	f := &Failure{Code: Classify(err), Message: err.Error()}
	if root := rootCause(err); root != nil && root.Error() != f.Message {
		f.Details = root.Error()
	}
	return f
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

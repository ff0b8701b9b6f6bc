package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by backends and the resilient client. Callers
// classify with errors.Is; backends wrap the underlying cause with %w.
var (
	// ErrMissingAPIKey is returned at construction when no credential is set.
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not configured")

	// ErrInvalidAPIKey means the backend rejected the credential.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrRateLimited means the backend reported quota exhaustion or throttling.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetwork covers transport failures, timeouts and unavailable upstreams.
	ErrNetwork = errors.New("network error")

	// ErrEmptyResponse means the backend returned no candidate text.
	ErrEmptyResponse = errors.New("empty response from backend")

	// ErrGenerationFailed matches every GenerationError.
	ErrGenerationFailed = errors.New("generation failed")
)

// ParseError reports that a completion could not be turned into JSON, even
// after the repair path ran.
type ParseError struct {
	// Cause is the last JSON syntax error.
	Cause error
	// Repair is set when the repair call itself failed.
	Repair error
}

func (e *ParseError) Error() string {
	if e.Repair != nil {
		return fmt.Sprintf("JSON parsing failed: %v (repair failed: %v)", e.Cause, e.Repair)
	}
	return fmt.Sprintf("JSON parsing failed: %v", e.Cause)
}

// Unwrap exposes both the syntax error and the repair failure.
func (e *ParseError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Repair != nil {
		errs = append(errs, e.Repair)
	}
	return errs
}

// GenerationError is returned once the retry budget is exhausted.
type GenerationError struct {
	Attempts int
	Last     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate content after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the error of the final attempt.
func (e *GenerationError) Unwrap() error {
	return e.Last
}

// Is reports GenerationError as ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

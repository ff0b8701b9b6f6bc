// Package llm owns all communication with the generative backend: the Backend
// interface, the Gemini implementation and the resilient client that paces,
// retries and repairs calls.
package llm

import (
	"context"
	"time"
)

// Backend sends a single text prompt and returns the text of the first
// candidate, or "" when the backend produced none.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CallKind distinguishes first-pass generation calls from repair calls.
type CallKind string

const (
	CallGenerate CallKind = "generate"
	CallRepair   CallKind = "repair"
)

// Observer receives client events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveCall(kind CallKind, elapsed time.Duration, err error)
	ObserveRetry(attempt int)
	ObserveRepair(ok bool)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(CallKind, time.Duration, error) {}
func (nopObserver) ObserveRetry(int)                           {}
func (nopObserver) ObserveRepair(bool)                         {}

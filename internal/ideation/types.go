// Package ideation implements the idea-category pipeline: the category and
// option stages, the sampler, the topic analyzer and the orchestrator that
// turns a request into a success or failure envelope.
package ideation

import (
	"context"
	"encoding/json"
	"time"
)

// Generator turns a rendered prompt into a parsed JSON value.
// *llm.Client is the production implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Category is one facet of the subject proposed by the backend.
type Category struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	ExampleOptions []string `json:"example_options"`
}

// CategoryWithOptions is a category populated with candidate values.
type CategoryWithOptions struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Options     []string `json:"options"`

	// Fallback is set when Options are the category's example options
	// because generation failed for this category.
	Fallback bool `json:"-"`
}

// Outcome is the payload of a successful run.
type Outcome struct {
	ExpertRole    string                `json:"expert_role"`
	TargetSubject string                `json:"target_subject"`
	Categories    []CategoryWithOptions `json:"categories"`
}

// Failure describes why a run failed.
type Failure struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// Result is the terminal value of a run: exactly one of Data or Error is set.
// It serializes to {"success":true,"data":{...}} or
// {"success":false,"error":{...}}.
type Result struct {
	Success bool     `json:"success"`
	Data    *Outcome `json:"data,omitempty"`
	Error   *Failure `json:"error,omitempty"`

	RunID    string        `json:"-"`
	Duration time.Duration `json:"-"`
}

// Succeeded builds a success result.
func Succeeded(outcome Outcome) Result {
	return Result{Success: true, Data: &outcome}
}

// Failed builds a failure result from err.
func Failed(err error) Result {
	return Result{Success: false, Error: NewFailure(err)}
}

// FallbackCount returns how many categories carry fallback options.
func (r Result) FallbackCount() int {
	if r.Data == nil {
		return 0
	}
	n := 0
	for _, c := range r.Data.Categories {
		if c.Fallback {
			n++
		}
	}
	return n
}

// OptionCount returns the total number of options across categories.
func (r Result) OptionCount() int {
	if r.Data == nil {
		return 0
	}
	n := 0
	for _, c := range r.Data.Categories {
		n += len(c.Options)
	}
	return n
}

// CategoryCount returns the number of categories in a successful result.
func (r Result) CategoryCount() int {
	if r.Data == nil {
		return 0
	}
	return len(r.Data.Categories)
}

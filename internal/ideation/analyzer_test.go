package ideation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facetforge/internal/llm"
)

const analysisJSON = `{
	"expert_role": "recipe developer",
	"target_subject": "curry recipe",
	"ai_type_id": "recipe_generation",
	"ai_type_description": "Generates cooking recipes",
	"target_output_id": "curry_recipe_detail",
	"context": "Home cooks with little time",
	"goal": "A reliable weeknight curry"
}`

func TestAnalyzerAnalyze(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (json.RawMessage, error) {
		return json.RawMessage(analysisJSON), nil
	}}

	got, err := NewAnalyzer(gen).Analyze(context.Background(), "  I want a quick curry recipe  ")
	require.NoError(t, err)
	assert.Equal(t, &TopicAnalysis{
		ExpertRole:        "recipe developer",
		TargetSubject:     "curry recipe",
		AITypeID:          "recipe_generation",
		AITypeDescription: "Generates cooking recipes",
		TargetOutputID:    "curry_recipe_detail",
		Context:           "Home cooks with little time",
		Goal:              "A reliable weeknight curry",
	}, got)

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "I want a quick curry recipe")

	req := got.Request()
	assert.Equal(t, "recipe developer", req.ExpertRole)
	assert.Contains(t, req.DomainContext, "Goal: A reliable weeknight curry")
	assert.NoError(t, req.Validate())
}

func TestAnalyzerRejectsEmptyRequest(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (json.RawMessage, error) { return nil, nil }}
	_, err := NewAnalyzer(gen).Analyze(context.Background(), " ")
	assert.Equal(t, CodeValidationError, Classify(err))
	assert.Empty(t, gen.Prompts())
}

func TestParseAnalysisNamesMissingField(t *testing.T) {
	_, err := ParseAnalysis(json.RawMessage(`{"expert_role": "x", "target_subject": "y", "ai_type_id": ""}`))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "ai_type_id", vErr.Field)

	_, err = ParseAnalysis(json.RawMessage(`["not", "an", "object"]`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnalyzerPropagatesClientFailure(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (json.RawMessage, error) {
		return nil, &llm.GenerationError{Attempts: 1, Last: llm.ErrInvalidAPIKey}
	}}
	_, err := NewAnalyzer(gen).Analyze(context.Background(), "anything")
	assert.Equal(t, CodeInvalidAPIKey, Classify(err))
}

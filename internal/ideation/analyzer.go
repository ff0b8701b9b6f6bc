package ideation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"facetforge/internal/logging"
	"facetforge/internal/prompt"
)

// TopicAnalysis is what the analyzer extracts from a free-form request.
type TopicAnalysis struct {
	ExpertRole        string `json:"expert_role"`
	TargetSubject     string `json:"target_subject"`
	AITypeID          string `json:"ai_type_id"`
	AITypeDescription string `json:"ai_type_description"`
	TargetOutputID    string `json:"target_output_id"`
	Context           string `json:"context"`
	Goal              string `json:"goal"`
}

// analysisFields lists the required keys in report order.
var analysisFields = []string{
	"expert_role",
	"target_subject",
	"ai_type_id",
	"ai_type_description",
	"target_output_id",
	"context",
	"goal",
}

// Analyzer derives persona and subject from a user request.
type Analyzer struct {
	client Generator
}

// NewAnalyzer creates an analyzer backed by client.
func NewAnalyzer(client Generator) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze asks the backend to analyze userRequest and validates the answer.
func (a *Analyzer) Analyze(ctx context.Context, userRequest string) (*TopicAnalysis, error) {
	userRequest = strings.TrimSpace(userRequest)
	if userRequest == "" {
		return nil, fieldError("request", "is required")
	}

	ctx, span := tracer.Start(ctx, "ideation.analyze")
	defer span.End()

	log := logging.Get(logging.CategoryAnalyzer)
	log.Debug("Analyzing request (%d bytes)", len(userRequest))

	raw, err := a.client.Generate(ctx, prompt.Analysis(userRequest))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to analyze request: %w", err)
	}

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		log.Warn("Analysis response rejected: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("invalid analysis response: %w", err)
	}

	log.Info("Request analyzed: expert_role=%q target_subject=%q", analysis.ExpertRole, analysis.TargetSubject)
	return analysis, nil
}

// ParseAnalysis validates raw as an analysis object whose fields are all
// non-empty strings.
func ParseAnalysis(raw json.RawMessage) (*TopicAnalysis, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fieldError("analysis", "must be a JSON object")
	}

	values := make(map[string]string, len(analysisFields))
	for _, field := range analysisFields {
		s, ok := nonEmptyString(obj[field])
		if !ok {
			return nil, fieldError(field, "must be a non-empty string")
		}
		values[field] = s
	}

	return &TopicAnalysis{
		ExpertRole:        values["expert_role"],
		TargetSubject:     values["target_subject"],
		AITypeID:          values["ai_type_id"],
		AITypeDescription: values["ai_type_description"],
		TargetOutputID:    values["target_output_id"],
		Context:           values["context"],
		Goal:              values["goal"],
	}, nil
}

// Request builds a pipeline request with the analyzed persona and subject.
// The analysis context and goal become the domain context.
func (t *TopicAnalysis) Request() Request {
	req := NewRequest(t.ExpertRole, t.TargetSubject)
	req.DomainContext = "Context: " + t.Context + "\nGoal: " + t.Goal
	return req
}

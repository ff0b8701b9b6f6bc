package ideation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"facetforge/internal/logging"
	"facetforge/internal/prompt"
)

var tracer = otel.Tracer("facetforge/internal/ideation")

// CategoryStage asks the backend for the facets of a subject.
type CategoryStage struct {
	client Generator
}

// NewCategoryStage creates a category stage backed by client.
func NewCategoryStage(client Generator) *CategoryStage {
	return &CategoryStage{client: client}
}

// CategoryInput parameterizes one category generation.
type CategoryInput struct {
	ExpertRole    string
	TargetSubject string
	TargetCount   int
	DomainContext string
}

// Generate returns at most in.TargetCount validated categories, in backend
// order. Short results are not padded, but an empty array is a validation
// failure rather than a success with no categories.
func (s *CategoryStage) Generate(ctx context.Context, in CategoryInput) ([]Category, error) {
	ctx, span := tracer.Start(ctx, "ideation.categories")
	defer span.End()

	log := logging.Get(logging.CategoryCategories)
	log.Debug("Generating %d categories for %q as %q", in.TargetCount, in.TargetSubject, in.ExpertRole)

	raw, err := s.client.Generate(ctx, prompt.Categories(prompt.CategoryInput{
		ExpertRole:    in.ExpertRole,
		TargetSubject: in.TargetSubject,
		TargetCount:   in.TargetCount,
		DomainContext: in.DomainContext,
	}))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to generate categories: %w", err)
	}

	parsed, err := ParseCategories(raw)
	if err != nil {
		log.Warn("Category response rejected: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("invalid category response: %w", err)
	}

	categories := []Category(parsed)
	if in.TargetCount > 0 && len(categories) > in.TargetCount {
		categories = categories[:in.TargetCount]
	}

	log.Info("Generated %d categories (backend returned %d)", len(categories), len(parsed))
	span.SetAttributes(attribute.Int("facetforge.categories.count", len(categories)))
	return categories, nil
}

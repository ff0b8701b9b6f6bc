package ideation

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"facetforge/internal/logging"
	"facetforge/internal/prompt"
)

// OptionStage generates candidate values for each category. A failure for
// one category never aborts the stage: that category falls back to its
// example options.
type OptionStage struct {
	client Generator
}

// NewOptionStage creates an option stage backed by client.
func NewOptionStage(client Generator) *OptionStage {
	return &OptionStage{client: client}
}

// OptionInput parameterizes one option stage run.
type OptionInput struct {
	ExpertRole    string
	TargetSubject string
	Categories    []Category
	TargetCount   int
	DomainContext string
}

// Generate returns one entry per input category, in input order. Categories
// are processed sequentially. The only error is context cancellation.
func (s *OptionStage) Generate(ctx context.Context, in OptionInput) ([]CategoryWithOptions, error) {
	ctx, span := tracer.Start(ctx, "ideation.options")
	defer span.End()

	log := logging.Get(logging.CategoryOptions)
	out := make([]CategoryWithOptions, 0, len(in.Categories))
	fallbacks := 0

	for i, cat := range in.Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		options, err := s.generateFor(ctx, in, cat)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warnw("Option generation failed, using example options",
				"category", cat.Name, "index", i, "error", err.Error())
			fallbacks++
			out = append(out, CategoryWithOptions{
				Name:        cat.Name,
				Description: cat.Description,
				Options:     slices.Clone(cat.ExampleOptions),
				Fallback:    true,
			})
			continue
		}

		log.Debug("Generated %d options for %q", len(options), cat.Name)
		out = append(out, CategoryWithOptions{
			Name:        cat.Name,
			Description: cat.Description,
			Options:     options,
		})
	}

	span.SetAttributes(
		attribute.Int("facetforge.options.categories", len(out)),
		attribute.Int("facetforge.options.fallbacks", fallbacks),
	)
	return out, nil
}

func (s *OptionStage) generateFor(ctx context.Context, in OptionInput, cat Category) ([]string, error) {
	raw, err := s.client.Generate(ctx, prompt.Options(prompt.OptionInput{
		ExpertRole:          in.ExpertRole,
		TargetSubject:       in.TargetSubject,
		CategoryName:        cat.Name,
		CategoryDescription: cat.Description,
		TargetCount:         in.TargetCount,
		DomainContext:       in.DomainContext,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to generate options for %q: %w", cat.Name, err)
	}

	parsed, err := ParseOptions(raw)
	if err != nil {
		return nil, err
	}

	options := []string(parsed)
	if in.TargetCount > 0 && len(options) > in.TargetCount {
		options = options[:in.TargetCount]
	}
	return options, nil
}

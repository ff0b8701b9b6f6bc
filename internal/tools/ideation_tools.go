package tools

import (
	"context"
	"strings"

	"facetforge/internal/ideation"
)

// Tool names exposed to MCP clients.
const (
	GenerateIdeaCategoriesName = "generate_idea_categories"
	AnalyzeRequestName         = "analyze_request"
)

// Runner executes one pipeline run. *ideation.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req ideation.Request) ideation.Result
}

// RequestAnalyzer analyzes a free-form request. *ideation.Analyzer implements it.
type RequestAnalyzer interface {
	Analyze(ctx context.Context, userRequest string) (*ideation.TopicAnalysis, error)
}

// GenerateIdeaCategoriesTool exposes the idea-category pipeline.
func GenerateIdeaCategoriesTool(runner Runner) *Tool {
	return &Tool{
		Name: GenerateIdeaCategoriesName,
		Description: "Generates the categories (facets) along which a subject can vary, each with " +
			"candidate options, from the perspective of an expert role. Optionally samples a " +
			"random subset of options per category.",
		Schema: ToolSchema{
			Required: []string{"expert_role", "target_subject"},
			Properties: map[string]Property{
				"expert_role": {
					Type:        "string",
					Description: "Expert persona whose perspective drives the categories (e.g. \"game designer\")",
				},
				"target_subject": {
					Type:        "string",
					Description: "Subject to break into categories (e.g. \"board game\")",
				},
				"target_category_count": {
					Type:        "integer",
					Description: "Number of categories to generate",
					Default:     ideation.DefaultCategoryCount,
					Minimum:     intPtr(ideation.MinCategoryCount),
					Maximum:     intPtr(ideation.MaxCategoryCount),
				},
				"target_options_per_category": {
					Type:        "integer",
					Description: "Number of options to generate per category",
					Default:     ideation.DefaultOptionsPerCategory,
					Minimum:     intPtr(ideation.MinOptionsPerCategory),
					Maximum:     intPtr(ideation.MaxOptionsPerCategory),
				},
				"randomize_selection": {
					Type:        "boolean",
					Description: "Keep a random subset of each category's options",
					Default:     false,
				},
				"random_sample_size": {
					Type:        "integer",
					Description: "Options kept per category when randomize_selection is true",
					Default:     ideation.DefaultSampleSize,
					Minimum:     intPtr(ideation.MinSampleSize),
					Maximum:     intPtr(ideation.MaxSampleSize),
				},
				"domain_context": {
					Type:        "string",
					Description: "Optional requirements or constraints that shape the categories and options",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			req := ideation.NewRequest("", "")
			if err := decodeArgs(args, &req); err != nil {
				return FailureText(err), nil
			}
			return encode(runner.Run(ctx, req))
		},
	}
}

// AnalyzeRequestTool exposes the topic analyzer.
func AnalyzeRequestTool(analyzer RequestAnalyzer) *Tool {
	return &Tool{
		Name: AnalyzeRequestName,
		Description: "Analyzes a free-form request and derives the expert role and target subject " +
			"to feed into generate_idea_categories, plus the kind of generative AI, context and goal.",
		Schema: ToolSchema{
			Required: []string{"request"},
			Properties: map[string]Property{
				"request": {
					Type:        "string",
					Description: "What the user wants to generate, in their own words",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			var in struct {
				Request string `json:"request"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return FailureText(err), nil
			}

			analysis, err := analyzer.Analyze(ctx, strings.TrimSpace(in.Request))
			if err != nil {
				return FailureText(err), nil
			}
			return encode(envelope{Success: true, Data: analysis})
		},
	}
}

// NewIdeationRegistry returns a registry holding the facetforge tools.
func NewIdeationRegistry(runner Runner, analyzer RequestAnalyzer) *Registry {
	r := NewRegistry()
	r.MustRegister(GenerateIdeaCategoriesTool(runner))
	if analyzer != nil {
		r.MustRegister(AnalyzeRequestTool(analyzer))
	}
	return r
}

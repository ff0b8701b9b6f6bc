package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"facetforge/internal/ideation"
	"facetforge/internal/render"
	"facetforge/internal/tools"
)

type generateFlags struct {
	expertRole    string
	targetSubject string
	categories    int
	options       int
	randomize     bool
	sampleSize    int
	domainContext string
	request       string
	format        string
	style         string
	width         int
}

func newGenerateCmd() *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate idea categories and options once",
		Long: `Runs the category and option stages for one subject and prints the result.

Either give --expert-role and --subject, or describe what you want with
--request and let the analyzer derive them. Explicit flags win over the
analysis.

Example:
  facetforge generate --expert-role "game designer" --subject "board game"
  facetforge generate --request "a cozy mystery novel set in Kyoto" --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.expertRole, "expert-role", "r", "", "Expert persona (e.g. \"game designer\")")
	fl.StringVarP(&f.targetSubject, "subject", "s", "", "Subject to break into categories")
	fl.IntVar(&f.categories, "categories", ideation.DefaultCategoryCount,
		fmt.Sprintf("Number of categories (%d-%d)", ideation.MinCategoryCount, ideation.MaxCategoryCount))
	fl.IntVar(&f.options, "options", ideation.DefaultOptionsPerCategory,
		fmt.Sprintf("Options per category (%d-%d)", ideation.MinOptionsPerCategory, ideation.MaxOptionsPerCategory))
	fl.BoolVar(&f.randomize, "randomize", false, "Keep a random subset of each category's options")
	fl.IntVar(&f.sampleSize, "sample-size", ideation.DefaultSampleSize,
		fmt.Sprintf("Options kept per category with --randomize (%d-%d)", ideation.MinSampleSize, ideation.MaxSampleSize))
	fl.StringVar(&f.domainContext, "context", "", "Extra requirements shaping categories and options")
	fl.StringVar(&f.request, "request", "", "Free-form request to analyze into role and subject")
	fl.StringVarP(&f.format, "format", "f", render.FormatJSON, "Output format: "+strings.Join(render.Formats, ", "))
	fl.StringVar(&f.style, "style", "", "Glamour style for markdown output (dark, light, notty, ...)")
	fl.IntVar(&f.width, "width", 80, "Wrap width for markdown output")
	return cmd
}

func runGenerate(cmd *cobra.Command, f *generateFlags) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	req, err := f.buildRequest(ctx, a)
	var result ideation.Result
	if err != nil {
		result = ideation.Failed(err)
	} else {
		result = a.pipeline.Run(ctx, req)
	}

	opts := render.Options{Style: f.style, Width: f.width}
	if err := render.Write(cmd.OutOrStdout(), result, f.format, opts); err != nil {
		return err
	}
	if !result.Success {
		return errSilent
	}
	return nil
}

// buildRequest merges flags over the analysis of --request, if given.
func (f *generateFlags) buildRequest(ctx context.Context, a *app) (ideation.Request, error) {
	req := ideation.NewRequest(f.expertRole, f.targetSubject)

	if strings.TrimSpace(f.request) != "" && (f.expertRole == "" || f.targetSubject == "") {
		analysis, err := a.analyzer.Analyze(ctx, f.request)
		if err != nil {
			return req, err
		}
		logger.Sugar().Infow("Request analyzed",
			"expert_role", analysis.ExpertRole,
			"target_subject", analysis.TargetSubject)

		req = analysis.Request()
		if f.expertRole != "" {
			req.ExpertRole = f.expertRole
		}
		if f.targetSubject != "" {
			req.TargetSubject = f.targetSubject
		}
	}

	req.TargetCategoryCount = f.categories
	req.TargetOptionsPerCategory = f.options
	req.RandomizeSelection = f.randomize
	req.RandomSampleSize = f.sampleSize
	if f.domainContext != "" {
		if req.DomainContext != "" {
			req.DomainContext += "\n"
		}
		req.DomainContext += f.domainContext
	}
	return req, nil
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [request...]",
		Short: "Derive expert role and subject from a free-form request",
		Long: `Analyzes what you want to generate and prints the expert role, target
subject, kind of generative AI, context and goal as a JSON envelope.

Example:
  facetforge analyze "I want ideas for a fantasy tavern menu"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			res, err := a.registry().Execute(ctx, tools.AnalyzeRequestName,
				map[string]any{"request": strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Result)

			var env struct {
				Success bool `json:"success"`
			}
			if err := json.Unmarshal([]byte(res.Result), &env); err != nil || !env.Success {
				return errSilent
			}
			return nil
		},
	}
}

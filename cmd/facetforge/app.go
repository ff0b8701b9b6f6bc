package main

import (
	"context"
	"errors"
	"fmt"

	"facetforge/internal/config"
	"facetforge/internal/ideation"
	"facetforge/internal/llm"
	"facetforge/internal/logging"
	"facetforge/internal/observability"
	"facetforge/internal/store"
	"facetforge/internal/tools"
)

// newBackend builds the generative backend. Tests replace it.
var newBackend = func(ctx context.Context, c *config.Config) (llm.Backend, error) {
	return llm.NewGeminiClient(ctx, c.GeminiConfig())
}

// app holds the components shared by the commands.
type app struct {
	client   *llm.Client
	pipeline *ideation.Pipeline
	analyzer *ideation.Analyzer
	journal  *store.Journal
	metrics  *observability.Metrics

	shutdownTracing observability.ShutdownFunc
}

// newApp wires the generation stack from c. A missing API key does not fail
// construction: every generation then fails with INVALID_API_KEY, which is
// how clients learn about it.
func newApp(ctx context.Context, c *config.Config) (*app, error) {
	if err := c.Validate(); err != nil && !errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, err
	}

	backend, err := newBackend(ctx, c)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		logging.BootError("No API key configured; generation will fail with %s", ideation.CodeInvalidAPIKey)
		backend = llm.BackendFunc(func(context.Context, string) (string, error) {
			return "", llm.ErrMissingAPIKey
		})
	case err != nil:
		return nil, err
	}
	if c.PacingDisabled() {
		logging.Get(logging.CategoryBoot).Warn("min_interval is 0s; backend calls are not paced")
	}

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Name,
		Version:     c.Version,
		File:        c.Tracing.File,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		metrics:         observability.NewMetrics(true),
		shutdownTracing: shutdown,
	}
	a.client = llm.NewClient(backend, c.ClientConfig(), llm.WithObserver(a.metrics))

	opts := []ideation.PipelineOption{ideation.WithRunObserver(a.metrics)}
	if c.Journal.Enabled {
		journal, err := store.OpenJournal(c.Journal.Path)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("failed to open run journal: %w", err)
		}
		a.journal = journal
		opts = append(opts, ideation.WithRecorder(journal))
	}

	a.pipeline = ideation.NewPipeline(a.client, opts...)
	a.analyzer = ideation.NewAnalyzer(a.client)
	return a, nil
}

// registry exposes the pipeline and the analyzer as tools.
func (a *app) registry() *tools.Registry {
	return tools.NewIdeationRegistry(a.pipeline, a.analyzer)
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.shutdownTracing != nil {
		errs = append(errs, a.shutdownTracing(ctx))
	}
	return errors.Join(errs...)
}

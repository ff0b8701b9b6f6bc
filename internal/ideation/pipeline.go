package ideation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"facetforge/internal/logging"
)

// Run outcomes reported to observers and the journal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RunRecord is the metadata of one finished run. It never carries results.
type RunRecord struct {
	ID            string
	StartedAt     time.Time
	ExpertRole    string
	TargetSubject string
	Outcome       string
	ErrorCode     ErrorCode
	CategoryCount int
	OptionCount   int
	FallbackCount int
	Duration      time.Duration
}

// RunRecorder persists run metadata.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// RunObserver receives run level metrics.
type RunObserver interface {
	ObserveRun(outcome string, code ErrorCode, elapsed time.Duration)
	ObserveFallbacks(n int)
}

// Pipeline sequences the category stage, the option stage and the sampler
// into one run.
type Pipeline struct {
	categories *CategoryStage
	options    *OptionStage
	intn       func(n int) int
	recorder   RunRecorder
	observer   RunObserver
	now        func() time.Time
	newID      func() string
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithRecorder journals every run through r.
func WithRecorder(r RunRecorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = r }
}

// WithRunObserver reports run metrics to o.
func WithRunObserver(o RunObserver) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithRandom sets the random source used by the sampler.
func WithRandom(intn func(n int) int) PipelineOption {
	return func(p *Pipeline) { p.intn = intn }
}

// WithRunClock replaces the wall clock used for run timing.
func WithRunClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline whose stages share client.
func NewPipeline(client Generator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		categories: NewCategoryStage(client),
		options:    NewOptionStage(client),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one pipeline run. It always returns a Result: any stage
// failure short-circuits the remaining stages and becomes a failure
// envelope.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	id := p.newID()
	start := p.now()

	ctx, span := tracer.Start(ctx, "ideation.run", trace.WithAttributes(
		attribute.String("facetforge.run.id", id),
		attribute.String("facetforge.expert_role", req.ExpertRole),
		attribute.String("facetforge.target_subject", req.TargetSubject),
	))
	defer span.End()

	log := logging.Get(logging.CategoryPipeline).With("run_id", id)
	log.Info("Run started: expert_role=%q target_subject=%q", req.ExpertRole, req.TargetSubject)

	result := p.run(ctx, req)
	result.RunID = id
	result.Duration = p.now().Sub(start)

	if result.Success {
		span.SetStatus(codes.Ok, "")
		log.Infow("Run finished",
			"categories", result.CategoryCount(),
			"options", result.OptionCount(),
			"fallbacks", result.FallbackCount(),
			"duration_ms", result.Duration.Milliseconds())
	} else {
		span.SetStatus(codes.Error, result.Error.Message)
		span.SetAttributes(attribute.String("error.code", string(result.Error.Code)))
		log.Errorw("Run failed",
			"code", string(result.Error.Code),
			"error", result.Error.Message,
			"duration_ms", result.Duration.Milliseconds())
	}

	p.report(ctx, req, start, result)
	return result
}

func (p *Pipeline) run(ctx context.Context, req Request) Result {
	if err := req.Validate(); err != nil {
		return Failed(err)
	}

	categories, err := p.categories.Generate(ctx, CategoryInput{
		ExpertRole:    req.ExpertRole,
		TargetSubject: req.TargetSubject,
		TargetCount:   req.TargetCategoryCount,
		DomainContext: req.DomainContext,
	})
	if err != nil {
		return Failed(err)
	}

	withOptions, err := p.options.Generate(ctx, OptionInput{
		ExpertRole:    req.ExpertRole,
		TargetSubject: req.TargetSubject,
		Categories:    categories,
		TargetCount:   req.TargetOptionsPerCategory,
		DomainContext: req.DomainContext,
	})
	if err != nil {
		return Failed(err)
	}

	if req.RandomizeSelection {
		withOptions = Sample(withOptions, req.RandomSampleSize, p.intn)
	}

	return Succeeded(Outcome{
		ExpertRole:    req.ExpertRole,
		TargetSubject: req.TargetSubject,
		Categories:    withOptions,
	})
}

// report feeds metrics, the audit trail and the journal. Failures here are logged only.
func (p *Pipeline) report(ctx context.Context, req Request, start time.Time, result Result) {
	outcome := OutcomeSuccess
	var code ErrorCode
	if !result.Success {
		outcome = OutcomeFailure
		code = result.Error.Code
	}
	logging.AuditRun(result.RunID, req.TargetSubject, string(code), result.Duration, result.FallbackCount())

	if p.observer != nil {
		p.observer.ObserveRun(outcome, code, result.Duration)
		if n := result.FallbackCount(); n > 0 {
			p.observer.ObserveFallbacks(n)
		}
	}

	if p.recorder == nil {
		return
	}
	rec := RunRecord{
		ID:            result.RunID,
		StartedAt:     start,
		ExpertRole:    req.ExpertRole,
		TargetSubject: req.TargetSubject,
		Outcome:       outcome,
		ErrorCode:     code,
		CategoryCount: result.CategoryCount(),
		OptionCount:   result.OptionCount(),
		FallbackCount: result.FallbackCount(),
		Duration:      result.Duration,
	}
	// The journal write must not be lost when the run's context was cancelled.
	if err := p.recorder.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		logging.PipelineError("Failed to journal run %s: %v", result.RunID, err)
	}
}

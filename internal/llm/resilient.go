package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"facetforge/internal/logging"
)

var tracer = otel.Tracer("facetforge/internal/llm")

// ClientConfig holds the pacing and retry knobs of Client.
type ClientConfig struct {
	// MinInterval is the minimum spacing between two outbound calls,
	// measured at dispatch.
	MinInterval time.Duration
	// RetryBaseDelay is multiplied by the attempt number after a failure.
	RetryBaseDelay time.Duration
	// MaxRetries is the attempt budget used by Generate.
	MaxRetries int
}

// DefaultClientConfig returns the production pacing: one call every 5s,
// 2s×attempt backoff and three attempts.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MinInterval:    5 * time.Second,
		RetryBaseDelay: 2 * time.Second,
		MaxRetries:     3,
	}
}

// Client turns prompts into parsed JSON values. It serializes every
// outbound call of one instance, including repair calls, so sharing a
// Client between callers never violates MinInterval.
type Client struct {
	backend  Backend
	cfg      ClientConfig
	observer Observer
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	lastRequest time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver reports calls, retries and repairs to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock replaces the wall clock and the sleeper. Used by tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.now = now
		c.sleep = sleep
	}
}

// NewClient wraps backend with pacing, retries and JSON repair. Zero fields
// of cfg take their default values.
func NewClient(backend Backend, cfg ClientConfig, opts ...Option) *Client {
	def := DefaultClientConfig()
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	} else if cfg.MinInterval == 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	c := &Client{
		backend:  backend,
		cfg:      cfg,
		observer: nopObserver{},
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// Generate runs GenerateWithRetries with the configured attempt budget.
func (c *Client) Generate(ctx context.Context, prompt string) (json.RawMessage, error) {
	return c.GenerateWithRetries(ctx, prompt, c.cfg.MaxRetries)
}

// GenerateWithRetries sends prompt and returns the parsed JSON value. Each
// failed attempt waits RetryBaseDelay×attempt before the next one. After
// maxRetries failures the result is a *GenerationError wrapping the last
// cause. Every failure is retried, including a rejected key; only a
// missing key and context cancellation end the loop immediately.
func (c *Client) GenerateWithRetries(ctx context.Context, prompt string, maxRetries int) (json.RawMessage, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	ctx, span := tracer.Start(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("facetforge.llm.max_retries", maxRetries)))
	defer span.End()

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attempts = attempt
		value, err := c.attempt(ctx, prompt)
		if err == nil {
			span.SetAttributes(attribute.Int("facetforge.llm.attempts", attempt))
			span.SetStatus(codes.Ok, "")
			if attempt > 1 {
				logging.Generation("Content generated on attempt %d", attempt)
			}
			return value, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ctxErr.Error())
			return nil, err
		}

		logging.GenerationWarn("Attempt %d/%d failed: %v", attempt, maxRetries, err)
		if attempt == maxRetries || errors.Is(err, ErrMissingAPIKey) {
			break
		}

		c.observer.ObserveRetry(attempt)
		delay := c.cfg.RetryBaseDelay * time.Duration(attempt)
		logging.GenerationDebug("Retrying in %v", delay)
		if err := c.sleep(ctx, delay); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	genErr := &GenerationError{Attempts: attempts, Last: lastErr}
	logging.GenerationError("%v", genErr)
	span.SetAttributes(attribute.Int("facetforge.llm.attempts", attempts))
	span.RecordError(genErr)
	span.SetStatus(codes.Error, genErr.Error())
	return nil, genErr
}

// attempt performs one invocation followed by the parse/repair cycle.
func (c *Client) attempt(ctx context.Context, prompt string) (json.RawMessage, error) {
	text, err := c.call(ctx, CallGenerate, prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	return c.resolve(ctx, text)
}

// call paces and dispatches one backend request.
func (c *Client) call(ctx context.Context, kind CallKind, prompt string) (string, error) {
	if err := c.pace(ctx); err != nil {
		return "", err
	}

	start := c.now()
	text, err := c.backend.Complete(ctx, prompt)
	elapsed := c.now().Sub(start)
	c.observer.ObserveCall(kind, elapsed, err)
	logging.AuditBackend(string(kind), elapsed, err)
	if err != nil {
		logging.GenerationDebug("%s call failed: %v", kind, err)
		return "", err
	}
	logging.GenerationDebug("%s call returned %d bytes", kind, len(text))
	return text, nil
}

// pace blocks until MinInterval has passed since the previous dispatch and
// stamps the new one. The lock is held while waiting so callers queue up.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastRequest.IsZero() {
		elapsed := c.now().Sub(c.lastRequest)
		if wait := c.cfg.MinInterval - elapsed; wait > 0 {
			logging.GenerationDebug("Rate limiting: waiting %v", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	c.lastRequest = c.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable reports whether err may succeed on a later attempt. The
// client retries every failure except a missing key; callers use this for
// reporting.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrInvalidAPIKey):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

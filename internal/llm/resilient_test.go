package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the client sleeps.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
	f.sleeps = append(f.sleeps, d)
	return nil
}

func (f *fakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

type reply struct {
	text string
	err  error
}

// scriptedBackend replays replies in order; the last one repeats.
type scriptedBackend struct {
	mu         sync.Mutex
	replies    []reply
	prompts    []string
	dispatched []time.Time
	now        func() time.Time
}

func (b *scriptedBackend) Complete(_ context.Context, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, prompt)
	if b.now != nil {
		b.dispatched = append(b.dispatched, b.now())
	}
	i := len(b.prompts) - 1
	if i >= len(b.replies) {
		i = len(b.replies) - 1
	}
	return b.replies[i].text, b.replies[i].err
}

func (b *scriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

type recordingObserver struct {
	mu      sync.Mutex
	calls   map[CallKind]int
	retries []int
	repairs []bool
}

func (o *recordingObserver) ObserveCall(kind CallKind, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[CallKind]int)
	}
	o.calls[kind]++
}

func (o *recordingObserver) ObserveRetry(attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, attempt)
}

func (o *recordingObserver) ObserveRepair(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.repairs = append(o.repairs, ok)
}

// noPacing disables the inter-call interval so only retry sleeps are recorded.
var noPacing = ClientConfig{MinInterval: -1}

func decodeInts(t *testing.T, raw json.RawMessage) []int {
	t.Helper()
	var out []int
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestConsecutiveCallsArePaced(t *testing.T) {
	clock := newFakeClock()
	backend := &scriptedBackend{replies: []reply{{text: "[1]"}}, now: clock.Now}
	client := NewClient(backend, ClientConfig{}, WithClock(clock.Now, clock.Sleep))

	ctx := context.Background()
	_, err := client.Generate(ctx, "first")
	require.NoError(t, err)
	_, err = client.Generate(ctx, "second")
	require.NoError(t, err)

	require.Len(t, backend.dispatched, 2)
	gap := backend.dispatched[1].Sub(backend.dispatched[0])
	assert.GreaterOrEqual(t, gap, 5*time.Second)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Sleeps())
}

func TestPacingUsesWallClock(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: "{}"}}}
	client := NewClient(backend, ClientConfig{MinInterval: 40 * time.Millisecond})

	var mu sync.Mutex
	var wg sync.WaitGroup
	start := time.Now()
	var last time.Time
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Generate(context.Background(), "concurrent")
			assert.NoError(t, err)
			mu.Lock()
			if now := time.Now(); now.After(last) {
				last = now
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, backend.Calls())
	assert.GreaterOrEqual(t, last.Sub(start), 80*time.Millisecond)
}

func TestRetryDelaysGrowWithAttempt(t *testing.T) {
	clock := newFakeClock()
	backend := &scriptedBackend{replies: []reply{
		{err: ErrNetwork},
		{err: ErrNetwork},
		{text: "[7]"},
	}}
	obs := &recordingObserver{}
	client := NewClient(backend, noPacing, WithClock(clock.Now, clock.Sleep), WithObserver(obs))

	value, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, decodeInts(t, value))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.Sleeps())
	assert.Equal(t, []int{1, 2}, obs.retries)
	assert.Equal(t, 3, obs.calls[CallGenerate])
}

func TestExhaustedRetriesReturnGenerationError(t *testing.T) {
	clock := newFakeClock()
	cause := errors.New("connection reset")
	backend := &scriptedBackend{replies: []reply{{err: cause}}}
	client := NewClient(backend, noPacing, WithClock(clock.Now, clock.Sleep))

	_, err := client.Generate(context.Background(), "p")
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to generate content after 3 attempts: connection reset", err.Error())
	assert.Equal(t, 3, backend.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.Sleeps())
}

func TestFencedJSONParsesWithoutRepair(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: "```json\n[1,2]\n```"}}}
	obs := &recordingObserver{}
	client := NewClient(backend, noPacing, WithObserver(obs))

	value, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, decodeInts(t, value))
	assert.Equal(t, 1, backend.Calls())
	assert.Empty(t, obs.repairs)
}

func TestRepairPathReturnsRepairedValue(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{
		{text: `[1, 2,,`},
		{text: "```json\n[1, 2]\n```"},
	}}
	obs := &recordingObserver{}
	client := NewClient(backend, noPacing, WithObserver(obs))

	value, err := client.Generate(context.Background(), "original prompt")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, decodeInts(t, value))

	require.Equal(t, 2, backend.Calls())
	assert.Contains(t, backend.prompts[1], "syntax errors")
	assert.Contains(t, backend.prompts[1], `[1, 2,,`)
	assert.Equal(t, []bool{true}, obs.repairs)
	assert.Equal(t, 1, obs.calls[CallRepair])
}

func TestRepairCallIsPaced(t *testing.T) {
	clock := newFakeClock()
	backend := &scriptedBackend{
		replies: []reply{{text: "oops"}, {text: `{"ok":true}`}},
		now:     clock.Now,
	}
	client := NewClient(backend, ClientConfig{}, WithClock(clock.Now, clock.Sleep))

	_, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, backend.dispatched, 2)
	assert.GreaterOrEqual(t, backend.dispatched[1].Sub(backend.dispatched[0]), 5*time.Second)
}

func TestFailedRepairFailsAttempt(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: "not json"}}}
	obs := &recordingObserver{}
	client := NewClient(backend, noPacing, WithObserver(obs))

	_, err := client.GenerateWithRetries(context.Background(), "p", 1)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Nil(t, parseErr.Repair)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to generate content after 1 attempts: JSON parsing failed"))
	assert.Equal(t, 2, backend.Calls())
	assert.Equal(t, []bool{false}, obs.repairs)
}

func TestRepairCallErrorIsKept(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{
		{text: "not json"},
		{err: ErrRateLimited},
	}}
	client := NewClient(backend, noPacing)

	_, err := client.GenerateWithRetries(context.Background(), "p", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "repair failed")
}

func TestEmptyResponseRetriesWithoutRepair(t *testing.T) {
	clock := newFakeClock()
	backend := &scriptedBackend{replies: []reply{{text: "  "}, {text: "[3]"}}}
	client := NewClient(backend, noPacing, WithClock(clock.Now, clock.Sleep))

	value, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, decodeInts(t, value))
	require.Equal(t, 2, backend.Calls())
	assert.Equal(t, "p", backend.prompts[1], "second call is a retry, not a repair")
}

func TestEmptyResponseExhaustsToGenerationError(t *testing.T) {
	clock := newFakeClock()
	backend := &scriptedBackend{replies: []reply{{text: ""}}}
	client := NewClient(backend, noPacing, WithClock(clock.Now, clock.Sleep))

	_, err := client.GenerateWithRetries(context.Background(), "p", 2)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestCancellationStopsRetrying(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	backend := BackendFunc(func(ctx context.Context, _ string) (string, error) {
		cancel()
		return "", ctx.Err()
	})
	client := NewClient(backend, noPacing, WithClock(clock.Now, clock.Sleep))

	_, err := client.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGenerationFailed)
	assert.Empty(t, clock.Sleeps())
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(&scriptedBackend{}, ClientConfig{})
	assert.Equal(t, DefaultClientConfig(), client.Config())
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrInvalidAPIKey))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(ErrRateLimited))
	assert.True(t, IsRetryable(&ParseError{Cause: errors.New("bad")}))
}

func TestMissingKeyIsNotRetried(t *testing.T) {
	clock := newFakeClock()
	backend := &scriptedBackend{replies: []reply{{err: ErrMissingAPIKey}}}
	client := NewClient(backend, noPacing, WithClock(clock.Now, clock.Sleep))

	_, err := client.Generate(context.Background(), "p")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, genErr.Attempts)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, 1, backend.Calls())
	assert.Empty(t, clock.Sleeps())
}

func TestRejectedKeyUsesFullRetryBudget(t *testing.T) {
	clock := newFakeClock()
	backend := &scriptedBackend{replies: []reply{{err: fmt.Errorf("%w: 401", ErrInvalidAPIKey)}}}
	client := NewClient(backend, noPacing, WithClock(clock.Now, clock.Sleep))

	_, err := client.Generate(context.Background(), "p")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
	assert.Equal(t, 3, backend.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.Sleeps())
}

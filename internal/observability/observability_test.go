package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"facetforge/internal/ideation"
	"facetforge/internal/llm"
	"facetforge/internal/mcp"
)

var (
	_ llm.Observer         = (*Metrics)(nil)
	_ ideation.RunObserver = (*Metrics)(nil)
	_ mcp.CallObserver     = (*Metrics)(nil)
)

func TestLLMMetrics(t *testing.T) {
	m := NewMetrics(false)

	m.ObserveCall(llm.CallGenerate, time.Second, nil)
	m.ObserveCall(llm.CallGenerate, time.Second, llm.ErrRateLimited)
	m.ObserveCall(llm.CallRepair, time.Second, nil)
	m.ObserveRetry(1)
	m.ObserveRetry(2)
	m.ObserveRepair(true)
	m.ObserveRepair(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("generate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("generate", "RATE_LIMIT_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("repair", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.llmRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.repairs.WithLabelValues("repaired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.repairs.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.llmLatency))
}

func TestRunAndToolMetrics(t *testing.T) {
	m := NewMetrics(false)

	m.ObserveRun(ideation.OutcomeSuccess, "", 30*time.Second)
	m.ObserveRun(ideation.OutcomeFailure, ideation.CodeNetworkError, time.Second)
	m.ObserveFallbacks(3)
	m.ObserveToolCall("generate_idea_categories", time.Second, nil)
	m.ObserveToolCall("generate_idea_categories", time.Second, context.Canceled)
	m.ObserveToolCall("analyze_request", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failure", "NETWORK_ERROR")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.fallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("generate_idea_categories", "CANCELLED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("analyze_request", "INTERNAL_ERROR")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(true)
	m.ObserveRetry(1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "facetforge_llm_retries_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetricsServeStopsOnCancel(t *testing.T) {
	m := NewMetrics(false)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- m.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, err = InitTracing(TracingConfig{Enabled: true})
	assert.Error(t, err)
}

func TestInitTracingWritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	path := filepath.Join(t.TempDir(), "traces", "spans.jsonl")
	shutdown, err := InitTracing(TracingConfig{Enabled: true, File: path, Version: "test"})
	require.NoError(t, err)

	_, span := otel.Tracer("facetforge/test").Start(context.Background(), "ideation.run")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"Name":"ideation.run"`), "span written: %s", data)
	assert.Contains(t, string(data), "facetforge")
}

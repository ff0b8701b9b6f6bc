// Package observability wires Prometheus metrics and OpenTelemetry tracing.
//
// Metrics implements the observer interfaces of the llm, ideation and mcp
// packages so those packages stay free of metric types.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facetforge/internal/ideation"
	"facetforge/internal/llm"
	"facetforge/internal/logging"
)

const namespace = "facetforge"

// outcomeOK labels successful calls.
const outcomeOK = "ok"

// Metrics holds every facetforge collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	llmCalls   *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec
	llmRetries prometheus.Counter
	repairs    *prometheus.CounterVec

	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	fallbacks   prometheus.Counter

	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec
}

// NewMetrics registers the collectors. withRuntime adds the Go and process
// collectors.
func NewMetrics(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "calls_total",
			Help: "Backend calls by kind (generate, repair) and outcome.",
		}, []string{"kind", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "llm", Name: "call_duration_seconds",
			Help:    "Backend call latency, excluding pacing waits.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}, []string{"kind"}),
		llmRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "retries_total",
			Help: "Attempts that were retried after a failure.",
		}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "repairs_total",
			Help: "JSON repair attempts by result.",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "runs_total",
			Help: "Pipeline runs by outcome and error code.",
		}, []string{"outcome", "code"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "run_duration_seconds",
			Help:    "End-to-end run latency.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 9),
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "option_fallbacks_total",
			Help: "Categories whose options fell back to the example options.",
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mcp", Name: "tool_calls_total",
			Help: "MCP tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "mcp", Name: "tool_call_duration_seconds",
			Help:    "MCP tool call latency.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"tool"}),
	}

	reg.MustRegister(
		m.llmCalls, m.llmLatency, m.llmRetries, m.repairs,
		m.runs, m.runDuration, m.fallbacks,
		m.toolCalls, m.toolLatency,
	)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// errorLabel maps err to a bounded label value.
func errorLabel(err error) string {
	if err == nil {
		return outcomeOK
	}
	if errors.Is(err, context.Canceled) {
		return "CANCELLED"
	}
	return string(ideation.Classify(err))
}

// ObserveCall implements llm.Observer.
func (m *Metrics) ObserveCall(kind llm.CallKind, elapsed time.Duration, err error) {
	m.llmCalls.WithLabelValues(string(kind), errorLabel(err)).Inc()
	m.llmLatency.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ObserveRetry implements llm.Observer.
func (m *Metrics) ObserveRetry(int) {
	m.llmRetries.Inc()
}

// ObserveRepair implements llm.Observer.
func (m *Metrics) ObserveRepair(ok bool) {
	result := "failed"
	if ok {
		result = "repaired"
	}
	m.repairs.WithLabelValues(result).Inc()
}

// ObserveRun implements ideation.RunObserver.
func (m *Metrics) ObserveRun(outcome string, code ideation.ErrorCode, elapsed time.Duration) {
	m.runs.WithLabelValues(outcome, string(code)).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// ObserveFallbacks implements ideation.RunObserver.
func (m *Metrics) ObserveFallbacks(n int) {
	m.fallbacks.Add(float64(n))
}

// ObserveToolCall implements mcp.CallObserver.
func (m *Metrics) ObserveToolCall(tool string, elapsed time.Duration, err error) {
	m.toolCalls.WithLabelValues(tool, errorLabel(err)).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		logging.Boot("Metrics listening on %s/metrics", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

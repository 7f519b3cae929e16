package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jmylchreest/listingopt/internal/llm"
)

// Metrics bundles Prometheus collectors for optimization runs.
type Metrics struct {
	Registry      *prometheus.Registry
	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	ErrorsTotal   *prometheus.CounterVec
	WarningsTotal prometheus.Counter
	LLMCalls      *prometheus.CounterVec
	LLMTokens     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingopt_runs_total",
			Help: "Optimization runs by outcome.",
		},
		[]string{"outcome"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listingopt_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40, 90},
		},
		[]string{"stage"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingopt_errors_total",
			Help: "Failed runs by stage and error kind.",
		},
		[]string{"stage", "kind"},
	)
	warnings := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listingopt_quality_warnings_total",
			Help: "Advisory quality warnings attached to results.",
		},
	)

	llmCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingopt_llm_calls_total",
			Help: "Completion calls by provider, mode and outcome.",
		},
		[]string{"provider", "mode", "outcome"},
	)
	llmTokens := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingopt_llm_tokens_total",
			Help: "Tokens reported by the completion provider.",
		},
		[]string{"provider", "direction"},
	)

	registry.MustRegister(runs, stageDuration, errorsTotal, warnings, llmCalls, llmTokens,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:      registry,
		RunsTotal:     runs,
		StageDuration: stageDuration,
		ErrorsTotal:   errorsTotal,
		WarningsTotal: warnings,
		LLMCalls:      llmCalls,
		LLMTokens:     llmTokens,
	}
}

// IncRun counts a finished run.
func (m *Metrics) IncRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncError counts a failure.
func (m *Metrics) IncError(stage, kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage, kind).Inc()
}

// AddWarnings counts quality warnings.
func (m *Metrics) AddWarnings(n int) {
	if m == nil || n == 0 {
		return
	}
	m.WarningsTotal.Add(float64(n))
}

// OnLLMCall implements llm.Observer.
func (m *Metrics) OnLLMCall(_ context.Context, e llm.CallEvent) {
	if m == nil {
		return
	}
	mode, outcome := "sync", "success"
	if e.Stream {
		mode = "stream"
	}
	if e.Err != nil {
		outcome = "error"
	}
	m.LLMCalls.WithLabelValues(e.Provider, mode, outcome).Inc()
	if e.Usage.InputTokens > 0 {
		m.LLMTokens.WithLabelValues(e.Provider, "input").Add(float64(e.Usage.InputTokens))
	}
	if e.Usage.OutputTokens > 0 {
		m.LLMTokens.WithLabelValues(e.Provider, "output").Add(float64(e.Usage.OutputTokens))
	}
}

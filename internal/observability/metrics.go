// Package observability exposes process-local prometheus metrics for the
// agent loop, provider calls and tool executions.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	agentRunTotal    *prometheus.CounterVec
	agentRunDuration *prometheus.HistogramVec
	agentTurnsTotal  prometheus.Counter

	providerCallTotal    *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec
	providerRetryTotal   *prometheus.CounterVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	memorySaveTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
	registry    *prometheus.Registry
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			agentRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_run_total",
					Help: "Total agent runs by termination reason.",
				},
				[]string{"termination"},
			),
			agentRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_run_duration_seconds",
					Help:    "Agent run duration in seconds by api mode.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"mode"},
			),
			agentTurnsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "agent_loop_turns_total",
					Help: "Total loop turns across all agent runs.",
				},
			),
			providerCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "provider_call_total",
					Help: "Total provider calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			providerCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "provider_call_duration_seconds",
					Help:    "Provider call duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			providerRetryTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "provider_retry_total",
					Help: "Total provider call retries by provider.",
				},
				[]string{"provider"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			memorySaveTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memory_save_total",
					Help: "Total memory store saves by status.",
				},
				[]string{"status"},
			),
		}

		registry = prometheus.NewRegistry()
		registry.MustRegister(
			m.agentRunTotal,
			m.agentRunDuration,
			m.agentTurnsTotal,
			m.providerCallTotal,
			m.providerCallDuration,
			m.providerRetryTotal,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.memorySaveTotal,
		)

		metricsInst = m
	})
	return metricsInst
}

// EnsureRegistered forces metric registration. Safe to call from any package
// init path.
func EnsureRegistered() {
	getMetrics()
}

// Handler returns an HTTP handler serving the metrics registry.
func Handler() http.Handler {
	getMetrics()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordAgentRun records a completed agent run.
func RecordAgentRun(mode, termination string, duration time.Duration) {
	m := getMetrics()
	m.agentRunTotal.WithLabelValues(termination).Inc()
	m.agentRunDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordAgentTurn records one loop turn.
func RecordAgentTurn() {
	getMetrics().agentTurnsTotal.Inc()
}

// RecordProviderCall records a provider call outcome.
func RecordProviderCall(provider string, duration time.Duration, ok bool) {
	m := getMetrics()
	status := "ok"
	if !ok {
		status = "error"
	}
	m.providerCallTotal.WithLabelValues(provider, status).Inc()
	m.providerCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordProviderRetry records a retried provider call.
func RecordProviderRetry(provider string) {
	getMetrics().providerRetryTotal.WithLabelValues(provider).Inc()
}

// RecordToolExecution records a tool invocation outcome.
func RecordToolExecution(tool, status string, duration time.Duration) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordMemorySave records a memory store save outcome.
func RecordMemorySave(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	getMetrics().memorySaveTotal.WithLabelValues(status).Inc()
}

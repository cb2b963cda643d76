// Package metrics defines the Prometheus instrumentation for the agent:
// tool executions by outcome, model round trips, and turn round counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles all collectors. A nil *Metrics is a valid no-op receiver
// so instrumentation can be left unwired in tests.
type Metrics struct {
	toolExecutions *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	modelRequests  *prometheus.CounterVec
	turnRounds     prometheus.Histogram
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "generalist",
			Name:      "tool_executions_total",
			Help:      "Tool invocations by tool name and terminal outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "generalist",
			Name:      "tool_execution_duration_seconds",
			Help:      "Wall-clock duration of tool executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		modelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "generalist",
			Name:      "model_requests_total",
			Help:      "Model round trips by outcome.",
		}, []string{"outcome"}),
		turnRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "generalist",
			Name:      "turn_rounds",
			Help:      "Rounds taken per conversation turn.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}

	reg.MustRegister(m.toolExecutions, m.toolDuration, m.modelRequests, m.turnRounds)
	return m
}

// ObserveToolExecution records one terminal tool execution.
func (m *Metrics) ObserveToolExecution(tool, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(seconds)
}

// ObserveModelRequest records one model round trip.
func (m *Metrics) ObserveModelRequest(outcome string) {
	if m == nil {
		return
	}
	m.modelRequests.WithLabelValues(outcome).Inc()
}

// ObserveTurnRounds records the round count of a completed turn.
func (m *Metrics) ObserveTurnRounds(rounds int) {
	if m == nil {
		return
	}
	m.turnRounds.Observe(float64(rounds))
}

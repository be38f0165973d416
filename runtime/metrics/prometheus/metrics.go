// Package prometheus provides Prometheus metrics for PromptFlow operations.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "promptflow"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Approval gate decision label values.
const (
	DecisionApproved    = "approved"
	DecisionBlocked     = "blocked"
	DecisionUnavailable = "unavailable"
)

var (
	// awsCallDuration is a histogram of AWS API call duration in seconds.
	awsCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aws_call_duration_seconds",
			Help:      "Duration of AWS API calls in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "operation"},
	)

	// awsCallsTotal is a counter of AWS API calls.
	awsCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aws_calls_total",
			Help:      "Total number of AWS API calls",
		},
		[]string{"service", "operation", "status"}, // status: success, error
	)

	// approvalGateTotal counts approval gate evaluations by outcome.
	approvalGateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_gate_total",
			Help:      "Total number of approval gate evaluations",
		},
		[]string{"decision"}, // decision: approved, blocked, unavailable
	)

	// streamEventsTotal counts flow response stream events by type.
	streamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Total number of flow response stream events",
		},
		[]string{"type"},
	)

	// prepareDuration is a histogram of time spent waiting for a flow to prepare.
	prepareDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_prepare_duration_seconds",
			Help:      "Time from PrepareFlow until the flow reported a final status",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"}, // status: Prepared, Failed, timeout
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		awsCallDuration,
		awsCallsTotal,
		approvalGateTotal,
		streamEventsTotal,
		prepareDuration,
	}
)

// RecordAWSCall records a completed AWS API call.
func RecordAWSCall(service, operation, status string, durationSeconds float64) {
	awsCallDuration.WithLabelValues(service, operation).Observe(durationSeconds)
	awsCallsTotal.WithLabelValues(service, operation, status).Inc()
}

// RecordApprovalGate records one approval gate decision.
func RecordApprovalGate(decision string) {
	approvalGateTotal.WithLabelValues(decision).Inc()
}

// RecordStreamEvent records one event read from a flow response stream.
func RecordStreamEvent(eventType string) {
	streamEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordPrepare records how long a flow took to reach a final prepare status.
func RecordPrepare(status string, durationSeconds float64) {
	prepareDuration.WithLabelValues(status).Observe(durationSeconds)
}

// Package metrics provides Prometheus instrumentation for the assist service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation label values.
const (
	OpSummary = "summary"
	OpExplain = "explain"
	OpProbe   = "probe"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeExhausted   = "exhausted"
	OutcomeConfigError = "config_error"
	OutcomeEmpty       = "empty"
	OutcomeStored      = "stored"
)

var (
	// RequestLatency tracks end-to-end latency of a facade call in seconds.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assist_request_latency_seconds",
			Help:    "End-to-end assist request latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation", "outcome"},
	)

	// RequestsTotal counts facade calls by outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assist_requests_total",
			Help: "Total number of assist requests by operation and status.",
		},
		[]string{"operation", "status"}, // one of the Outcome values
	)

	// ModelAttemptsTotal counts whole-request attempts against one model.
	ModelAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assist_model_attempts_total",
			Help: "Model attempts by operation, model and outcome.",
		},
		[]string{"operation", "model", "outcome"},
	)

	// ChunkRequestsTotal counts per-chunk summary calls.
	ChunkRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assist_chunk_requests_total",
			Help: "Summary chunk requests by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	// TransportRetriesTotal counts HTTP attempts beyond the first.
	TransportRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assist_transport_retries_total",
			Help: "Transport-level retries by model.",
		},
		[]string{"model"},
	)

	// ExhaustionsTotal counts calls where every candidate model failed.
	ExhaustionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assist_exhaustions_total",
			Help: "Requests that fell back to the sentinel string.",
		},
		[]string{"operation"},
	)

	// ActiveRequests tracks the number of currently in-flight requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assist_active_requests",
			Help: "Number of currently in-flight assist requests.",
		},
	)

	// SummaryStoreLookupsTotal counts summary store reads by result.
	SummaryStoreLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assist_summary_store_lookups_total",
			Help: "Summary store lookups by result.",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)
)

// RecordTransport records the retry count of one transport call.
func RecordTransport(model string, attempts int) {
	if attempts > 1 {
		TransportRetriesTotal.WithLabelValues(model).Add(float64(attempts - 1))
	}
}

// RecordRequest counts one facade call and observes its latency.
func RecordRequest(operation, outcome string, start time.Time) {
	RequestsTotal.WithLabelValues(operation, outcome).Inc()
	RequestLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

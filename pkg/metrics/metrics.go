package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// No per-query label: raw SQL is unbounded cardinality. The statement
	// itself goes to the slow-query log line instead.
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of slow database queries",
		},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of queries exceeding the slow-query threshold",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	PhaseTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phase_transition_count",
			Help: "Total number of applied phase lifecycle transitions",
		},
		[]string{"action"}, // action: start, submit, approve, complete
	)

	ChecklistApprovalCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checklist_approval_count",
			Help: "Total number of checklist approvals",
		},
		[]string{"gate", "outcome"}, // gate: engineer, supervisor_1..3
	)

	ActiveTimerSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timer_sessions_active",
			Help: "Number of timer sessions currently running or paused",
		},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementSlowQuery(duration time.Duration) {
	SlowQueryCount.Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func IncrementPhaseTransition(action string) {
	PhaseTransitionCount.WithLabelValues(action).Inc()
}

func IncrementChecklistApproval(gate, outcome string) {
	ChecklistApprovalCount.WithLabelValues(gate, outcome).Inc()
}

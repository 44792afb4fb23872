// Package observability owns the service-level Prometheus collectors.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rosterOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "requests_total",
		Help:      "Roster mutations grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	participantsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "participants",
		Help:      "Current roster size per activity.",
	}, []string{"activity"})

	eventFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "event_record_failures_total",
		Help:      "Roster changes that were committed but could not be written to the outbox.",
	})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signup_service",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency grouped by method, route pattern and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(rosterOutcomes, participantsGauge, eventFailures, httpDuration)
}

// RecordRosterOutcome counts one signup or unenroll attempt.
func RecordRosterOutcome(operation, outcome string) {
	rosterOutcomes.WithLabelValues(operation, outcome).Inc()
}

// SetParticipants publishes the roster size of a known activity.
func SetParticipants(activity string, count int) {
	participantsGauge.WithLabelValues(activity).Set(float64(count))
}

// RecordEventFailure counts a roster change lost before reaching the outbox.
func RecordEventFailure() {
	eventFailures.Inc()
}

// ObserveHTTPRequest records latency for a served request. An empty route means
// no pattern matched.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

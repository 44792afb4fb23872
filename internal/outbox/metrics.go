package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	appendedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "events_appended_total",
		Help:      "Number of roster events written to the outbox, labeled by event type.",
	}, []string{"event_type"})

	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events successfully published.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of outbox events whose publish attempt failed and will be retried.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering, and marking outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(appendedCounter, deliveredCounter, failedCounter, batchDuration)
}

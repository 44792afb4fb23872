package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "consumer",
		Name:      "events_processed_total",
		Help:      "Roster events handled and committed, by event type.",
	}, []string{"event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Failed handler attempts on roster events, by event type.",
	}, []string{"event_type"})

	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "consumer",
		Name:      "events_dropped_total",
		Help:      "Roster events committed without being handled after exhausting retries, by event type.",
	}, []string{"event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Malformed records skipped per topic.",
	}, []string{"topic"})

	deliveryDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "signup_service",
		Subsystem: "consumer",
		Name:      "delivery_delay_seconds",
		Help:      "Time between a record's Kafka timestamp and its successful handling.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, droppedCounter, decodeErrorCounter, deliveryDelay)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		deliveryDelay.Observe(time.Since(msg.Timestamp).Seconds())
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.EventType).Inc()
}

func recordDropped(msg Message) {
	droppedCounter.WithLabelValues(msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcome label values.
const (
	OutcomeScheduled        = "scheduled"
	OutcomeIgnored          = "ignored"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeStaleTimestamp   = "stale_timestamp"
	OutcomeInvalidPayload   = "invalid_payload"
	OutcomePersistenceError = "persistence_error"
	OutcomeInternalError    = "internal_error"
	OutcomeRateLimited      = "rate_limited"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeBadRequest       = "bad_request"
)

var (
	// Webhook delivery metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telhawk_reviews_webhook_deliveries_total",
			Help: "Total number of webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	DeliveryBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telhawk_reviews_webhook_bytes_total",
			Help: "Total bytes of webhook payloads received",
		},
	)

	// Clock skew of fresh and stale deliveries alike
	TimestampSkew = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telhawk_reviews_webhook_timestamp_skew_seconds",
			Help:    "Absolute difference between claimed send time and receipt",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 3600},
		},
	)

	// Storage metrics
	StoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telhawk_reviews_store_duration_seconds",
			Help:    "Duration of review request inserts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telhawk_reviews_store_errors_total",
			Help: "Total number of failed review request inserts",
		},
	)

	// Event publishing metrics
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telhawk_reviews_publish_errors_total",
			Help: "Total number of scheduled events that failed to publish",
		},
	)

	DeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telhawk_reviews_dead_lettered_total",
			Help: "Total number of deliveries written to the dead-letter subject",
		},
		[]string{"result"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telhawk_reviews_rate_limit_hits_total",
			Help: "Total number of rate limited webhook deliveries",
		},
	)
)

// RecordOutcome counts one delivery.
func RecordOutcome(outcome string) {
	DeliveriesTotal.WithLabelValues(outcome).Inc()
}

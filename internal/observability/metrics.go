package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	IntentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_intents_total",
			Help: "Processed booking intents by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	IntentTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_intent_tx_seconds",
			Help:    "Duration of intent-processing transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	IntentRedeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_intent_redeliveries_total",
			Help: "Intents returned to the queue after a transient failure",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_notification_outbox_lag_seconds",
			Help: "Age of the oldest unpublished notification outbox row",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meethub_checkouts_total",
			Help: "Checkout attempts by result",
		},
		[]string{"result"},
	)

	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meethub_ticket_reconciliations_total",
			Help: "Ticket status reconciliations by source, target status and outcome",
		},
		[]string{"source", "status", "outcome"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meethub_webhook_events_total",
			Help: "Gateway webhook events received by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	sweptTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meethub_swept_tickets_total",
			Help: "Abandoned pending tickets removed by the sweeper",
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meethub_sweep_duration_seconds",
			Help:    "Duration of sweeper runs",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)
)

// Checkout records the result of a checkout attempt (ok, invalid, error).
func Checkout(result string) { checkouts.WithLabelValues(result).Inc() }

// Reconciliation records a ticket transition attempt.
func Reconciliation(source, status, outcome string) {
	reconciliations.WithLabelValues(source, status, outcome).Inc()
}

// WebhookEvent records one received webhook.
func WebhookEvent(eventType, outcome string) {
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// Sweep records one sweeper run.
func Sweep(deleted int64, took time.Duration) {
	sweptTickets.Add(float64(deleted))
	sweepDuration.Observe(took.Seconds())
}

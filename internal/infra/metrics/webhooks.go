package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksTotal,
		reconcileAlertsTotal,
		reconcileDuration,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Inbound webhook calls by gateway and outcome (applied/duplicate/rejected).",
		},
		[]string{"gateway", "outcome"},
	)

	reconcileAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_alerts_total",
			Help: "Logically invalid events surfaced to operators, by gateway and event type.",
		},
		[]string{"gateway", "event_type"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "End-to-end reconciliation pipeline duration per gateway.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway"},
	)
)

func IncWebhook(gateway, outcome string) {
	webhooksTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}

func IncReconcileAlert(gateway, eventType string) {
	reconcileAlertsTotal.WithLabelValues(norm(gateway), norm(eventType)).Inc()
}

func ObserveReconcile(gateway string, seconds float64) {
	reconcileDuration.WithLabelValues(norm(gateway)).Observe(seconds)
}

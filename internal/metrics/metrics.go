package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portpro_webhook_events_total",
		Help: "Inbound PortPro webhook events by outcome (processed, duplicate, invalid_signature, dead_lettered)",
	}, []string{"event_type", "outcome"})

	DLQDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_dead_letter_depth",
		Help: "Dead-letter entries awaiting retry",
	})

	DLQExhausted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_dead_letter_exhausted",
		Help: "Dead-letter entries past max retries requiring manual intervention",
	})

	ReconcileDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_reconcile_drift_total",
		Help: "Field discrepancies found and corrected during reconciliation",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notification deliveries by channel and status (sent, queued, skipped, failed)",
	}, []string{"channel", "status"})
)

// Package metrics provides Prometheus metrics for leadloop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leadloop"

var (
	// LeadsCreatedTotal tracks leads created by source
	LeadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_created_total",
			Help:      "Total number of leads created by source",
		},
		[]string{"source"},
	)

	// FollowupsSentTotal tracks successful outbound messages.
	// kind is one of autoreply, first, weekly.
	FollowupsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followups_sent_total",
			Help:      "Total number of outbound lead messages sent",
		},
		[]string{"kind", "channel"},
	)

	// SendFailuresTotal tracks outbound messages the provider rejected or could not accept
	SendFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Total number of failed outbound lead messages",
		},
		[]string{"kind", "channel"},
	)

	// SweepDuration tracks how long a full sweep over all tenants takes
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of follow-up and ingestion sweeps in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"sweep"},
	)

	// MailboxChecksTotal tracks mailbox ingestion attempts by outcome
	MailboxChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_checks_total",
			Help:      "Total number of mailbox checks by result",
		},
		[]string{"result"},
	)

	// ClassifierDecisionsTotal tracks lead gate decisions
	ClassifierDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_decisions_total",
			Help:      "Total number of classifier decisions",
		},
		[]string{"decision"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func RecordHTTPRequest(method, path, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordSend counts one outbound message attempt
func RecordSend(kind, channel string, success bool) {
	if success {
		FollowupsSentTotal.WithLabelValues(kind, channel).Inc()
		return
	}
	SendFailuresTotal.WithLabelValues(kind, channel).Inc()
}

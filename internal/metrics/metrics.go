// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync outcomes.
const (
	OutcomeAnalyzed = "analyzed"
	OutcomeKnown    = "known"
	OutcomeScreened = "screened"
	OutcomeFailed   = "failed"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxlens_analyses_total",
			Help: "Total number of messages analyzed, by detected content type",
		},
		[]string{"content_type"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inboxlens_analysis_duration_seconds",
			Help:    "Time spent analyzing one message",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	SyncMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxlens_sync_messages_total",
			Help: "Messages seen by mailbox syncs, by outcome",
		},
		[]string{"outcome"}, // analyzed, known, screened, failed
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inboxlens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveAnalysis records one finished analysis. Its signature matches the
// analyzer's observer hook.
func ObserveAnalysis(contentType string, took time.Duration) {
	AnalysesTotal.WithLabelValues(contentType).Inc()
	AnalysisDuration.Observe(took.Seconds())
}

func IncrementSync(outcome string) {
	SyncMessagesTotal.WithLabelValues(outcome).Inc()
}

func RecordHTTPRequestDuration(method, route, status string, took time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(took.Seconds())
}

// Package metrics provides Prometheus instrumentation for the duet service.
// It exposes gauges for queue depth and active sessions, counters for pairing
// outcomes and message verdicts, and histograms for send latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QueueDepth tracks the current number of unmatched queue entries.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "duet_queue_depth",
		Help: "Current number of unmatched queue entries",
	})

	// PairingAttemptsTotal counts pairing attempts, labeled by outcome:
	// "paired", "no_match", "claim_lost", or "error".
	PairingAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "duet_pairing_attempts_total",
		Help: "Total number of pairing attempts",
	}, []string{"outcome"})

	// MessagesTotal counts processed messages, labeled by verdict:
	// "safe", "flagged", "blocked", or "invalid".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "duet_messages_total",
		Help: "Total number of messages processed",
	}, []string{"verdict"})

	// SendLatency records message pipeline latency in seconds.
	SendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "duet_send_latency_seconds",
		Help:    "Message pipeline processing latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// ActiveSessions tracks the current number of active chat sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "duet_active_sessions",
		Help: "Current number of active chat sessions",
	})

	// WSConnections tracks the current number of realtime WebSocket connections.
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "duet_ws_connections",
		Help: "Current number of realtime WebSocket connections",
	})

	// ReportsTotal counts filed reports, labeled by outcome:
	// "recorded", "cooldown", or "auto_ban".
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "duet_reports_total",
		Help: "Total number of abuse reports filed",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		QueueDepth,
		PairingAttemptsTotal,
		MessagesTotal,
		SendLatency,
		ActiveSessions,
		WSConnections,
		ReportsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package telemetry provides Prometheus metrics for the streaming client.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client. All call sites must
// tolerate a nil *Metrics so telemetry stays optional.
type Metrics struct {
	// Stream metrics
	StreamsStarted  prometheus.Counter
	StreamsSettled  *prometheus.CounterVec // labeled by outcome: resolved/rejected/cancelled
	StreamDuration  prometheus.Histogram
	StreamsInFlight prometheus.Gauge

	// Protocol event metrics
	Events *prometheus.CounterVec // labeled by event type

	// Auth metrics
	RefreshAttempts prometheus.Counter // actual network refresh exchanges
	RefreshShared   prometheus.Counter // callers that piggybacked on an in-flight refresh
	AuthFailures    prometheus.Counter

	// Request metrics
	Requests *prometheus.CounterVec // labeled by kind (plain/stream) and status class
	Retries  prometheus.Counter     // 401-triggered retries after refresh
}

// NewMetrics creates and registers all metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StreamsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "lyricgate_streams_started_total",
			Help: "Number of streaming calls opened",
		}),
		StreamsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricgate_streams_settled_total",
			Help: "Number of streaming calls settled, by outcome",
		}, []string{"outcome"}),
		StreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lyricgate_stream_duration_seconds",
			Help:    "Wall time from connect to settlement",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		StreamsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lyricgate_streams_in_flight",
			Help: "Streaming calls currently open",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricgate_protocol_events_total",
			Help: "Protocol events decoded, by type",
		}, []string{"type"}),
		RefreshAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "lyricgate_refresh_attempts_total",
			Help: "Credential refresh exchanges actually sent",
		}),
		RefreshShared: factory.NewCounter(prometheus.CounterOpts{
			Name: "lyricgate_refresh_shared_total",
			Help: "Refresh callers deduplicated onto an in-flight exchange",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lyricgate_auth_failures_total",
			Help: "Refresh failures that cleared the session",
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricgate_requests_total",
			Help: "Outbound requests, by kind and status class",
		}, []string{"kind", "status"}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "lyricgate_request_retries_total",
			Help: "Requests retried once after a credential refresh",
		}),
	}
}

// RecordSettlement records a stream outcome. Safe on nil.
func (m *Metrics) RecordSettlement(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.StreamsSettled.WithLabelValues(outcome).Inc()
	m.StreamDuration.Observe(seconds)
	m.StreamsInFlight.Dec()
}

// RecordStreamStart records a stream opening. Safe on nil.
func (m *Metrics) RecordStreamStart() {
	if m == nil {
		return
	}
	m.StreamsStarted.Inc()
	m.StreamsInFlight.Inc()
}

// RecordEvent counts one decoded protocol event. Safe on nil.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType).Inc()
}

// RecordRefresh counts a refresh exchange or a deduplicated caller. Safe on nil.
func (m *Metrics) RecordRefresh(shared bool) {
	if m == nil {
		return
	}
	if shared {
		m.RefreshShared.Inc()
	} else {
		m.RefreshAttempts.Inc()
	}
}

// RecordAuthFailure counts a session-clearing refresh failure. Safe on nil.
func (m *Metrics) RecordAuthFailure() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}

// RecordRequest counts an outbound request. Safe on nil.
func (m *Metrics) RecordRequest(kind, status string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(kind, status).Inc()
}

// RecordRetry counts a post-refresh retry. Safe on nil.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

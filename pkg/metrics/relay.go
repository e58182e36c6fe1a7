package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics collects metrics for the relay core: session lifecycle,
// processed protocol lines and the pending-request table.
//
// A nil *RelayMetrics is a valid no-op collector, so call sites never need
// to branch on whether metrics are enabled.
type RelayMetrics struct {
	connectedSessions  prometheus.Gauge
	pendingRequests    prometheus.Gauge
	linesTotal         *prometheus.CounterVec
	rejectsTotal       *prometheus.CounterVec
	lineProcessingTime *prometheus.HistogramVec
}

// NewRelayMetrics creates and registers the relay metric set on the global
// registry. Returns nil (no-op) when the registry was never initialized.
func NewRelayMetrics() *RelayMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	m := &RelayMetrics{
		connectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connected_sessions",
			Help: "Number of currently connected peer sessions",
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_pending_requests",
			Help: "Number of dispatched commands awaiting a completion report",
		}),
		linesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_lines_total",
			Help: "Total protocol lines processed by type",
		}, []string{"type"}),
		rejectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_rejects_total",
			Help: "Total protocol-level rejections by kind",
		}, []string{"kind"}),
		lineProcessingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_line_processing_seconds",
			Help:    "Time to process each protocol line type",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.connectedSessions,
		m.pendingRequests,
		m.linesTotal,
		m.rejectsTotal,
		m.lineProcessingTime,
	)
	return m
}

// SetConnectedSessions records the current live-session count.
func (m *RelayMetrics) SetConnectedSessions(n int) {
	if m == nil {
		return
	}
	m.connectedSessions.Set(float64(n))
}

// SetPendingRequests records the current pending-table size.
func (m *RelayMetrics) SetPendingRequests(n int) {
	if m == nil {
		return
	}
	m.pendingRequests.Set(float64(n))
}

// RecordLine records one processed line of the given type and its duration.
func (m *RelayMetrics) RecordLine(lineType string, duration time.Duration) {
	if m == nil {
		return
	}
	m.linesTotal.WithLabelValues(lineType).Inc()
	m.lineProcessingTime.WithLabelValues(lineType).Observe(duration.Seconds())
}

// RecordReject records one protocol-level rejection of the given kind.
func (m *RelayMetrics) RecordReject(kind string) {
	if m == nil {
		return
	}
	m.rejectsTotal.WithLabelValues(kind).Inc()
}

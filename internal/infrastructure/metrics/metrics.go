package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
)

// RelayMetrics exposes the relay's delivery behavior. Fire-and-forget
// drops are intentional; the counters make them verifiable instead of
// invisible.
type RelayMetrics struct {
	Delivered         prometheus.Counter
	Dropped           *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	FeedRestarts      prometheus.Counter
}

// New creates the relay metric set and registers it with reg.
func New(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_events_delivered_total",
			Help: "Notifications queued to a live connection.",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Notifications intentionally not delivered, by reason.",
		}, []string{"reason"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Currently registered websocket connections.",
		}),
		FeedRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_feed_restarts_total",
			Help: "Times the change feed subscription was re-established.",
		}),
	}
	reg.MustRegister(m.Delivered, m.Dropped, m.ActiveConnections, m.FeedRestarts)
	return m
}

// Drop records one dropped event.
func (m *RelayMetrics) Drop(reason domain.DropReason) {
	m.Dropped.WithLabelValues(string(reason)).Inc()
}

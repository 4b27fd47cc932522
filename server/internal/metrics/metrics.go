package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every relay metric name.
const Namespace = "chatrelay"

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	sessionsActive  prometheus.Gauge
	sessionsTotal   prometheus.Counter
	sessionDuration prometheus.Histogram
	broadcasts      *prometheus.CounterVec
	enqueued        prometheus.Counter
	sendErrors      prometheus.Counter
	framesDropped   *prometheus.CounterVec
}

// New creates the relay collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions_active",
			Help:      "Number of connected chat sessions",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_total",
			Help:      "Total number of chat sessions started",
		}),
		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "session_duration_seconds",
			Help:      "Lifetime of chat sessions in seconds",
			Buckets:   []float64{1, 10, 60, 300, 1800, 3600, 4 * 3600},
		}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "broadcasts_total",
			Help:      "Total broadcasts issued by event type",
		}, []string{"event"}),
		enqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "deliveries_enqueued_total",
			Help:      "Total events pushed into client mailboxes",
		}),
		sendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "send_errors_total",
			Help:      "Total failed writes to client connections",
		}),
		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_dropped_total",
			Help:      "Total inbound frames discarded by reason",
		}, []string{"reason"}),
	}
}

// SessionStarted records a session entering the registry.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

// SessionEnded records a session leaving after running for d.
func (m *Metrics) SessionEnded(d time.Duration) {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
	m.sessionDuration.Observe(d.Seconds())
}

// Broadcast records one broadcast of the given event kind to recipients
// mailboxes.
func (m *Metrics) Broadcast(kind string, recipients int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(kind).Inc()
	m.enqueued.Add(float64(recipients))
}

// SendFailed records a failed write to a client connection.
func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.sendErrors.Inc()
}

// FrameDropped records an inbound frame discarded for reason.
func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}

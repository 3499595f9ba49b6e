package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks bus activity for the /metrics endpoint. A nil *Metrics is
// valid and records nothing, so tests and embedded uses can pass nil.
type Metrics struct {
	registrations    prometheus.Counter
	eventsPublished  *prometheus.CounterVec
	writeFailures    prometheus.Counter
	strayPublishes   prometheus.Counter
	terminations     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	activeTransports prometheus.Gauge
}

// NewMetrics registers the bus collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uiprobe",
			Subsystem: "bus",
			Name:      "transport_registrations_total",
			Help:      "Transports successfully attached to a session.",
		}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uiprobe",
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Events published, by wire event name.",
		}, []string{"type"}),
		writeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uiprobe",
			Subsystem: "bus",
			Name:      "transport_write_failures_total",
			Help:      "Transport writes that failed and removed the transport.",
		}),
		strayPublishes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uiprobe",
			Subsystem: "bus",
			Name:      "stray_publishes_total",
			Help:      "Publishes addressed to unknown or drained sessions.",
		}),
		terminations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uiprobe",
			Subsystem: "bus",
			Name:      "session_terminations_total",
			Help:      "Sessions torn down, by outcome.",
		}, []string{"outcome"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "uiprobe",
			Subsystem: "bus",
			Name:      "active_sessions",
			Help:      "Sessions currently registered.",
		}),
		activeTransports: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "uiprobe",
			Subsystem: "bus",
			Name:      "active_transports",
			Help:      "Transports currently attached across all sessions.",
		}),
	}
}

func (m *Metrics) registration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
	m.activeTransports.Inc()
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) published(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) writeFailure() {
	if m == nil {
		return
	}
	m.writeFailures.Inc()
}

func (m *Metrics) strayPublish() {
	if m == nil {
		return
	}
	m.strayPublishes.Inc()
}

func (m *Metrics) transportsRemoved(n int) {
	if m == nil {
		return
	}
	m.activeTransports.Sub(float64(n))
}

func (m *Metrics) sessionClosed(outcome string, transports int) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.activeTransports.Sub(float64(transports))
	m.terminations.WithLabelValues(outcome).Inc()
}

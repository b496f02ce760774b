package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	activeSessions    prometheus.Gauge
	selections        *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	lookupFailures    *prometheus.CounterVec
	lookupDurations   *prometheus.HistogramVec
	noteOperations    *prometheus.CounterVec
	storedNotes       prometheus.Gauge
	noticeSubscribers prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wander_sessions_active",
			Help: "The number of open navigation sessions",
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wander_destination_selections_total",
			Help: "Destination selections by result",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wander_proximity_transitions_total",
			Help: "Proximity transitions by kind",
		}, []string{"transition"}),
		lookupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wander_lookup_failures_total",
			Help: "Failed route and place name lookups",
		}, []string{"kind"}),
		lookupDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wander_lookup_duration_seconds",
			Help:    "Duration of route and place name lookups",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		noteOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wander_note_operations_total",
			Help: "Note store operations by operation and result",
		}, []string{"operation", "result"}),
		storedNotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wander_notes_stored",
			Help: "The number of days with a saved note",
		}),
		noticeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wander_notice_subscribers",
			Help: "The number of connected notice websockets",
		}),
	}
	metrics.register(registerer)
	return metrics
}

func (m *Metrics) register(registerer prometheus.Registerer) {
	registerer.MustRegister(
		m.activeSessions,
		m.selections,
		m.transitions,
		m.lookupFailures,
		m.lookupDurations,
		m.noteOperations,
		m.storedNotes,
		m.noticeSubscribers,
	)
}

func (m *Metrics) IncrementSessions() {
	m.activeSessions.Inc()
}

func (m *Metrics) DecrementSessions() {
	m.activeSessions.Dec()
}

func (m *Metrics) IncrementSelections(result string) {
	m.selections.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTransitions(transition string) {
	m.transitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) IncrementLookupFailures(kind string) {
	m.lookupFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveLookupDuration(kind string, seconds float64) {
	m.lookupDurations.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) IncrementNoteOperations(operation, result string) {
	m.noteOperations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) SetStoredNotes(count float64) {
	m.storedNotes.Set(count)
}

func (m *Metrics) IncrementNoticeSubscribers() {
	m.noticeSubscribers.Inc()
}

func (m *Metrics) DecrementNoticeSubscribers() {
	m.noticeSubscribers.Dec()
}

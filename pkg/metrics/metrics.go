// Package metrics exposes Prometheus metrics for recording sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks the lifecycle of recording sessions.
type SessionMetrics struct {
	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	recorderStops    *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	sessionDuration  prometheus.Histogram
}

// NewSessionMetrics creates the session metrics and registers them.
func NewSessionMetrics(registry prometheus.Registerer) (*SessionMetrics, error) {
	m := &SessionMetrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetrecorder_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		sessionsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetrecorder_sessions_finished_total",
				Help: "Total number of recording sessions finished",
			},
			[]string{"reason", "state"},
		),
		recorderStops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetrecorder_recorder_stops_total",
				Help: "Total number of recorder shutdowns by how the process ended",
			},
			[]string{"mode"},
		),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meetrecorder_active_sessions",
			Help: "Number of sessions currently running",
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetrecorder_session_duration_seconds",
			Help:    "Wall-clock duration of finished sessions",
			Buckets: prometheus.ExponentialBuckets(60, 2, 8), // 1m to ~2h
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *SessionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.sessionsStarted.Describe(ch)
	m.sessionsFinished.Describe(ch)
	m.recorderStops.Describe(ch)
	m.activeSessions.Describe(ch)
	m.sessionDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *SessionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.sessionsStarted.Collect(ch)
	m.sessionsFinished.Collect(ch)
	m.recorderStops.Collect(ch)
	m.activeSessions.Collect(ch)
	m.sessionDuration.Collect(ch)
}

func (m *SessionMetrics) SessionStarted() {
	m.sessionsStarted.Inc()
	m.activeSessions.Inc()
}

// SessionFinished records a finished session. An empty stop mode means the
// recorder never ran.
func (m *SessionMetrics) SessionFinished(reason, state, stopMode string, seconds float64) {
	m.activeSessions.Dec()
	m.sessionsFinished.WithLabelValues(reason, state).Inc()
	if stopMode != "" {
		m.recorderStops.WithLabelValues(stopMode).Inc()
	}
	if seconds > 0 {
		m.sessionDuration.Observe(seconds)
	}
}

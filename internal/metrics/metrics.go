// Package metrics exposes Prometheus instruments for conversation turns and
// serves them over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/m3rciful/hrvbot/internal/dialog"
)

const namespace = "hrvbot"

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	Turns         *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
	ActiveSession prometheus.Gauge
	LinkImports   *prometheus.CounterVec
	QueueRejected prometheus.Counter
	Updates       *prometheus.CounterVec
	registry      *prometheus.Registry
}

// New registers the instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by dialog kind and result.",
		}, []string{"kind", "result"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent handling one turn, replies included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ActiveSession: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open dialog sessions.",
		}),
		LinkImports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_imports_total",
			Help:      "Link import attempts by status.",
		}, []string{"status"}),
		QueueRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_rejected_total",
			Help:      "Inbound events that could not be queued.",
		}),
		Updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Inbound Telegram updates by payload kind.",
		}, []string{"kind"}),
		registry: reg,
	}
}

// ObserveUpdate counts one inbound update of the given kind.
func (m *Metrics) ObserveUpdate(kind string) {
	m.Updates.WithLabelValues(kind).Inc()
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// TurnHandled counts one turn and records its duration.
func (m *Metrics) TurnHandled(kind dialog.Kind, result dialog.Result, took time.Duration) {
	label := string(kind)
	if label == "" {
		label = "none"
	}
	m.Turns.WithLabelValues(label, string(result)).Inc()
	m.TurnDuration.Observe(took.Seconds())
}

// ActiveSessions sets the open session gauge.
func (m *Metrics) ActiveSessions(n int) {
	m.ActiveSession.Set(float64(n))
}

// LinkImport counts one link import attempt.
func (m *Metrics) LinkImport(status string) {
	m.LinkImports.WithLabelValues(status).Inc()
}

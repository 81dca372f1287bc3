package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cory-johannsen/diceroll/internal/config"
)

// Roll outcome labels for the rolls_total counter.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// Metrics tracks roll throughput, latency, and results, plus connected sessions.
//
// Metrics:
//   - <ns>_rolls_total: rolls by status (ok, invalid, failed)
//   - <ns>_roll_duration_seconds: parse plus evaluate latency
//   - <ns>_roll_value: distribution of successful roll totals
//   - <ns>_sessions_active: currently connected telnet sessions
type Metrics struct {
	registry *prometheus.Registry

	rollsTotal     *prometheus.CounterVec
	rollDuration   prometheus.Histogram
	rollValue      prometheus.Histogram
	sessionsActive prometheus.Gauge
}

// NewMetrics creates and registers the roll metrics. A nil registry gets a
// fresh one.
//
// Precondition: cfg.Namespace must be non-empty.
func NewMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		rollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rolls_total",
				Help:      "Total number of dice expressions rolled",
			},
			[]string{"status"},
		),
		rollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "roll_duration_seconds",
				Help:      "Time to parse and evaluate a dice expression",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
		),
		rollValue: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "roll_value",
				Help:      "Totals of successful rolls",
				Buckets:   []float64{-10, 0, 1, 2, 5, 10, 20, 50, 100, 1000},
			},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "sessions_active",
				Help:      "Number of connected roll sessions",
			},
		),
	}

	registry.MustRegister(
		m.rollsTotal,
		m.rollDuration,
		m.rollValue,
		m.sessionsActive,
	)
	return m
}

// ObserveRoll records one roll attempt. value is only recorded for StatusOK.
func (m *Metrics) ObserveRoll(status string, elapsed time.Duration, value int) {
	m.rollsTotal.WithLabelValues(status).Inc()
	m.rollDuration.Observe(elapsed.Seconds())
	if status == StatusOK {
		m.rollValue.Observe(float64(value))
	}
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() { m.sessionsActive.Inc() }

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler exposing the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

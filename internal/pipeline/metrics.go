package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "keyword_planner"

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

// NewMetrics creates and registers the pipeline metrics on reg
// (the default registerer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Pipeline runs by outcome and the stage they ended in",
			},
			[]string{"status", "stage"},
		),
		DurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Wall time of pipeline runs",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"status"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "runs_in_flight",
				Help:      "Pipeline runs currently executing",
			},
		),
	}
}

func (m *Metrics) observe(r *Result) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(r.Status), string(r.Stage)).Inc()
	m.DurationSeconds.WithLabelValues(string(r.Status)).Observe(r.Duration.Seconds())
}

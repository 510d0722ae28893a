package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	sessions    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docfill",
			Name:      "generations_total",
			Help:      "Generation attempts by mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docfill",
			Name:      "generation_duration_seconds",
			Help:      "Time spent producing a document.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"mode"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docfill",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
	}
	reg.MustRegister(m.generations, m.duration, m.sessions)
	return m
}

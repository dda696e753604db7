// Package metrics registers the prometheus instruments shared by the gateway
// and the sequencer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the process-wide instruments. A single instance is wired
// through the gateway and sequencer; tests construct their own against a
// fresh registry.
type Metrics struct {
	ModelCalls    *prometheus.CounterVec
	ModelRetries  *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// New creates and registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_model_calls_total",
				Help: "Model gateway calls by model and outcome (ok, error).",
			},
			[]string{"model", "outcome"},
		),
		ModelRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_model_retries_total",
				Help: "Transient-failure retries by model.",
			},
			[]string{"model"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "council_stage_duration_seconds",
				Help:    "Wall time per pipeline stage.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"stage"},
		),
	}
	reg.MustRegister(m.ModelCalls, m.ModelRetries, m.StageDuration)
	return m
}

// Nop returns instruments registered on a throwaway registry, for callers
// that do not report metrics.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

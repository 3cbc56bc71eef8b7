package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics live on a private registry served at /metrics.
type Metrics struct {
	Registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	selected      prometheus.Histogram
	underAllocate prometheus.Counter
}

// NewMetrics registers the sampler's collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "case_sampler_runs_total",
			Help: "Sampling runs by outcome.",
		}, []string{"outcome"}),
		selected: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "case_sampler_selected_records",
			Help:    "Records selected per successful run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		underAllocate: factory.NewCounter(prometheus.CounterOpts{
			Name: "case_sampler_under_allocated_total",
			Help: "Runs that selected fewer records than their target.",
		}),
	}
}

const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

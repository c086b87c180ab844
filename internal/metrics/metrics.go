// Package metrics exposes Prometheus counters and histograms for engine
// runs. Each Collector owns its registry so tests and embedded uses never
// collide on the global default.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gantry"

// Collector records computation outcomes.
type Collector struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	conflicts    prometheus.Gauge
	criticalSize prometheus.Gauge
	finish       prometheus.Gauge
}

// NewCollector creates a collector with all metrics registered on a fresh
// registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of computations by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Total number of computations that returned an error, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time spent in a computation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
		conflicts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conflicts",
			Help:      "Overallocated resource-days found by the latest conflict check.",
		}),
		criticalSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "critical_tasks",
			Help:      "Number of zero-slack tasks in the latest schedule.",
		}),
		finish: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "project_finish_days",
			Help:      "Project finish offset, in working days, of the latest schedule.",
		}),
	}

	c.registry.MustRegister(c.runs, c.failures, c.duration, c.conflicts, c.criticalSize, c.finish)
	return c
}

// Observe records one computation of the given kind ("cpm", "pert",
// "conflicts") that took elapsed and ended with err.
func (c *Collector) Observe(kind string, elapsed time.Duration, err error) {
	c.runs.WithLabelValues(kind).Inc()
	c.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		c.failures.WithLabelValues(kind).Inc()
	}
}

// SetSchedule publishes the headline figures of the latest schedule.
func (c *Collector) SetSchedule(finish float64, critical int) {
	c.finish.Set(finish)
	c.criticalSize.Set(float64(critical))
}

// SetConflicts publishes the latest conflict count.
func (c *Collector) SetConflicts(n int) {
	c.conflicts.Set(float64(n))
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition
// format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes the scheduler's Prometheus surface: engine
// throughput, pool occupancy, and per-step latency.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects the scheduler's Prometheus metrics.
type Collector struct {
	jobsScheduled    prometheus.Counter
	jobsPromoted     prometheus.Counter
	jobsFinished     prometheus.Counter
	jobsSoftReset    prometheus.Counter
	jobsRetryExhaust prometheus.Counter

	stepLatency prometheus.Histogram

	activeSize  prometheus.Gauge
	waitingSize prometheus.Gauge
}

// NewCollector builds and registers a Collector against the default
// Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		jobsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_jobs_scheduled_total",
			Help: "Total number of jobs accepted via Schedule",
		}),
		jobsPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_jobs_promoted_total",
			Help: "Total number of jobs promoted from waiting into active",
		}),
		jobsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_jobs_finished_total",
			Help: "Total number of jobs that reached the Finished state",
		}),
		jobsSoftReset: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_jobs_soft_reset_total",
			Help: "Total number of soft resets triggered by timeout",
		}),
		jobsRetryExhaust: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_jobs_retry_exhausted_total",
			Help: "Total number of jobs finished because their retry budget was exhausted",
		}),
		stepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loom_step_latency_seconds",
			Help:    "Wall-clock duration of a single job step",
			Buckets: prometheus.DefBuckets,
		}),
		activeSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loom_active_size",
			Help: "Current number of jobs in the active list",
		}),
		waitingSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loom_waiting_size",
			Help: "Current number of jobs in the waiting list",
		}),
	}

	prometheus.MustRegister(
		c.jobsScheduled,
		c.jobsPromoted,
		c.jobsFinished,
		c.jobsSoftReset,
		c.jobsRetryExhaust,
		c.stepLatency,
		c.activeSize,
		c.waitingSize,
	)

	return c
}

func (c *Collector) RecordScheduled()     { c.jobsScheduled.Inc() }
func (c *Collector) RecordPromoted()      { c.jobsPromoted.Inc() }
func (c *Collector) RecordFinished()      { c.jobsFinished.Inc() }
func (c *Collector) RecordSoftReset()     { c.jobsSoftReset.Inc() }
func (c *Collector) RecordRetryExhausted() { c.jobsRetryExhaust.Inc() }

func (c *Collector) ObserveStepLatency(seconds float64) {
	c.stepLatency.Observe(seconds)
}

// UpdatePoolSizes sets the instantaneous active/waiting gauges — call
// once per tick from the event loop.
func (c *Collector) UpdatePoolSizes(active, waiting int) {
	c.activeSize.Set(float64(active))
	c.waitingSize.Set(float64(waiting))
}

// StartServer serves /metrics on port until the process exits.
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
}

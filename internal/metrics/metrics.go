// Package metrics records fetch and indexation counters for one run and
// writes them in the Prometheus text format, for a node_exporter textfile
// collector to pick up after the run ends.
//
// Registers:
//
//	vatt_fetch_tasks_total{indicator,status}
//	vatt_fetch_attempts_total{indicator}
//	vatt_fetch_task_duration_seconds{indicator}
//	vatt_adjusted_items{state}
//	vatt_last_run_timestamp_seconds
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of one run. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry
	tasks    *prometheus.CounterVec
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vatt_fetch_tasks_total",
				Help: "Fetch tasks by final status (fetched, cached, failed)",
			},
			[]string{"indicator", "status"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vatt_fetch_attempts_total",
				Help: "Source requests made, retries included",
			},
			[]string{"indicator"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vatt_fetch_task_duration_seconds",
				Help:    "Wall time of one fetch task, retries included",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"indicator"},
		),
		items: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vatt_adjusted_items",
				Help: "Line items of the last computation by state (adjusted, missing, unmatched)",
			},
			[]string{"state"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vatt_last_run_timestamp_seconds",
			Help: "Unix time the run finished",
		}),
	}
	r.registry.MustRegister(r.tasks, r.attempts, r.duration, r.items, r.lastRun)
	return r
}

// ObserveTask counts a finished fetch task.
func (r *Recorder) ObserveTask(indicator, status string, attempts int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.tasks.WithLabelValues(indicator, status).Inc()
	if attempts > 0 {
		r.attempts.WithLabelValues(indicator).Add(float64(attempts))
	}
	r.duration.WithLabelValues(indicator).Observe(elapsed.Seconds())
}

// SetAdjusted records how many line items were adjusted, left with a missing
// VATT, or left unadjusted because the reference period was absent.
func (r *Recorder) SetAdjusted(adjusted, missing, unmatched int) {
	if r == nil {
		return
	}
	r.items.WithLabelValues("adjusted").Set(float64(adjusted))
	r.items.WithLabelValues("missing").Set(float64(missing))
	r.items.WithLabelValues("unmatched").Set(float64(unmatched))
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile stamps the run time and writes every metric to path. The
// file is replaced atomically.
func (r *Recorder) WriteTextfile(path string, finished time.Time) error {
	if r == nil {
		return nil
	}
	r.lastRun.Set(float64(finished.Unix()))
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}

// Package metrics exposes validation outcomes as Prometheus metrics, either
// scraped over HTTP for the lifetime of a run or written once to a textfile
// for the node exporter's textfile collector.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/pipecheck/internal/validate"
)

const namespace = "pipecheck"

// Recorder is a validate.Observer backed by a private registry.
type Recorder struct {
	registry *prometheus.Registry
	checks   *prometheus.CounterVec
	units    *prometheus.CounterVec
	unitTime *prometheus.HistogramVec
	runTime  *prometheus.GaugeVec
}

var _ validate.Observer = (*Recorder)(nil)

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Checks evaluated, by task and result.",
		}, []string{"task", "result"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Data references processed, by task and status.",
		}, []string{"task", "status"}),
		unitTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time spent validating one data reference.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"task"}),
		runTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last completed run.",
		}, []string{"task"}),
	}
	r.registry.MustRegister(r.checks, r.units, r.unitTime, r.runTime)
	return r
}

// CheckCompleted counts one check outcome.
func (r *Recorder) CheckCompleted(_ context.Context, c validate.Check) {
	result := "pass"
	if !c.OK {
		result = "fail"
	}
	r.checks.WithLabelValues(c.Task, result).Inc()
}

// UnitCompleted counts one unit and observes its duration.
func (r *Recorder) UnitCompleted(_ context.Context, u validate.Unit) {
	r.units.WithLabelValues(u.Task, UnitStatus(u)).Inc()
	r.unitTime.WithLabelValues(u.Task).Observe(u.Duration.Seconds())
}

// RunCompleted records the wall time of a finished run.
func (r *Recorder) RunCompleted(task string, d time.Duration) {
	r.runTime.WithLabelValues(task).Set(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile atomically writes the registry to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// UnitStatus classifies a unit as "passed", "failed" or "error".
func UnitStatus(u validate.Unit) string {
	switch {
	case u.Err != nil:
		return "error"
	case u.Failures > 0:
		return "failed"
	}
	return "passed"
}

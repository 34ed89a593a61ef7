// Package metrics exports run progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/gridflow/internal/report"
	"github.com/vk/gridflow/internal/scheduler"
)

// Observer implements scheduler.Observer on a private Prometheus registry.
type Observer struct {
	registry     *prometheus.Registry
	taskCounter  *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	runningTasks prometheus.Gauge
	inFlight     prometheus.Gauge
}

var _ scheduler.Observer = (*Observer)(nil)

// New creates an Observer with its metrics registered.
func New() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		taskCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gridflow_tasks_total", Help: "Tasks that reached a terminal status."},
			[]string{"rule", "status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "gridflow_task_duration_seconds", Help: "Wall time of executed tasks.", Buckets: prometheus.ExponentialBuckets(0.01, 4, 10)},
			[]string{"rule"},
		),
		runningTasks: prometheus.NewGauge(prometheus.GaugeOpts{Name: "gridflow_running_tasks", Help: "Tasks currently running."}),
		inFlight:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "gridflow_budget_in_use", Help: "Resource budget held by running tasks."}),
	}
	o.registry.MustRegister(o.taskCounter, o.taskDuration, o.runningTasks, o.inFlight)
	return o
}

// TaskTransition implements scheduler.Observer.
func (o *Observer) TaskTransition(ev scheduler.Event) {
	rule := ev.Task.Rule.Name
	switch ev.Status {
	case report.Running:
		o.runningTasks.Inc()
		o.inFlight.Add(float64(ev.Weight))
		return
	case report.Succeeded, report.Failed:
		o.runningTasks.Dec()
		o.inFlight.Sub(float64(ev.Weight))
		o.taskDuration.WithLabelValues(rule).Observe(ev.Elapsed.Seconds())
	}
	if ev.Status.Terminal() {
		o.taskCounter.WithLabelValues(rule, string(ev.Status)).Inc()
	}
}

// Handler serves the metrics in the Prometheus text format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Package metrics exports event source and UI executor measurements to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/liveevent/internal/event"
	"github.com/dshills/liveevent/internal/event/dispatch"
)

const namespace = "liveevent"

// Recorder collects measurements into its own registry. It satisfies both
// event.Recorder and dispatch.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	triggers     *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	observers    *prometheus.GaugeVec
	tasks        prometheus.Counter
	taskPanics   prometheus.Counter
	taskDrops    prometheus.Counter
	taskDuration prometheus.Histogram
}

var (
	_ event.Recorder    = (*Recorder)(nil)
	_ dispatch.Recorder = (*Recorder)(nil)
)

// New creates a recorder with a fresh registry. Go runtime and process
// collectors are registered alongside the liveevent metrics.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		triggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Total number of triggers scheduled per event source",
		}, []string{"source"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of observer calls per event source",
		}, []string{"source"}),
		observers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observers",
			Help:      "Current number of registered observers per event source",
		}, []string{"source"}),
		tasks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of tasks run on the UI executor",
		}),
		taskPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_panics_total",
			Help:      "Total number of UI tasks that panicked",
		}),
		taskDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_dropped_total",
			Help:      "Total number of tasks posted after the UI executor stopped",
		}),
		taskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "UI task run time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
}

// Registry returns the registry holding all metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler serving the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Triggered records a scheduled trigger.
func (r *Recorder) Triggered(source string) {
	r.triggers.WithLabelValues(label(source)).Inc()
}

// Delivered records the observer calls made by one delivery.
func (r *Recorder) Delivered(source string, observers int) {
	r.deliveries.WithLabelValues(label(source)).Add(float64(observers))
}

// ObserversChanged records the current observer count.
func (r *Recorder) ObserversChanged(source string, observers int) {
	r.observers.WithLabelValues(label(source)).Set(float64(observers))
}

// TaskExecuted records a completed UI task.
func (r *Recorder) TaskExecuted(d time.Duration) {
	r.tasks.Inc()
	r.taskDuration.Observe(d.Seconds())
}

// TaskPanicked records a UI task panic.
func (r *Recorder) TaskPanicked() {
	r.taskPanics.Inc()
}

// TaskDropped records a task posted after shutdown.
func (r *Recorder) TaskDropped() {
	r.taskDrops.Inc()
}

func label(source string) string {
	if source == "" {
		return "unnamed"
	}
	return source
}

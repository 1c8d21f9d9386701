// Package metrics exposes optional Prometheus counters and histograms
// for the scheduler core, adapted from the teacher's pkg/metrics
// package-level-vars-plus-init-registration shape.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksAdmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasq_tasks_admitted_total",
			Help: "Total number of tasks admitted (Runner created) by kind",
		},
		[]string{"kind"},
	)

	TasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasq_tasks_completed_total",
			Help: "Total number of tasks that fired on_ready",
		},
		[]string{"kind"},
	)

	TasksFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasq_tasks_failed_total",
			Help: "Total number of tasks that ended in a spawn or pattern-miss error",
		},
		[]string{"kind", "reason"},
	)

	TasksRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tasq_tasks_running",
			Help: "Current number of live Runners",
		},
	)

	AdmissionCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasq_admission_cycle_duration_seconds",
			Help:    "Time taken to compute and spawn one admission batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	TaskStopDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasq_task_stop_duration_seconds",
			Help:    "Time from Stop() call to Runner reaping, by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(TasksAdmittedTotal)
	prometheus.MustRegister(TasksCompletedTotal)
	prometheus.MustRegister(TasksFailedTotal)
	prometheus.MustRegister(TasksRunning)
	prometheus.MustRegister(AdmissionCycleDuration)
	prometheus.MustRegister(TaskStopDuration)
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times one operation and reports it to a histogram on Observe.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration reports the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec reports the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

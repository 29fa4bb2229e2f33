// Package jobmetrics instruments asynq task handlers.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job run outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds the collectors shared by every job handler.
type Metrics struct {
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	propagated prometheus.Counter
	drifted    prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the
// default registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Tracker times one handler invocation.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
	skipped bool
}

// Track starts timing job. A nil receiver yields a tracker that records nothing.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// Skip marks the run as intentionally not performed, e.g. another worker
// holds the sweep lock.
func (t *Tracker) Skip() {
	if t != nil {
		t.skipped = true
	}
}

// End records the outcome and passes err through.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := StatusSuccess
	switch {
	case err != nil:
		status = StatusFailure
		t.metrics.failures.WithLabelValues(t.job).Inc()
	case t.skipped:
		status = StatusSkipped
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	if status != StatusSkipped {
		t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	}
	return err
}

// AddPropagated counts balance items rewritten by a background run.
func (m *Metrics) AddPropagated(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.propagated.Add(float64(count))
}

// SetDrifted records how many settings the last reconcile sweep found out of sync.
func (m *Metrics) SetDrifted(count int) {
	if m == nil {
		return
	}
	m.drifted.Set(float64(count))
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_jobs_total",
			Help: "Job executions by task type and status (success, failure, skipped).",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_jobs_failures_total",
			Help: "Failed job executions by task type.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_job_duration_seconds",
			Help:    "Duration of job executions that did work.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		propagated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_balance_items_propagated_total",
			Help: "Balance items updated by propagation retries and reconcile sweeps.",
		}),
		drifted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backoffice_vendor_settings_drifted",
			Help: "Vendor settings found out of sync by the last reconcile sweep.",
		}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.propagated, m.drifted)
	return m
}

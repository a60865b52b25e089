// Package jobmetrics instruments background jobs and the backup uploads they run.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics holds the job and backup upload collectors.
type Metrics struct {
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	uploads    *prometheus.CounterVec
	lastUpload *prometheus.GaugeVec

	now func() time.Time
}

var (
	sharedOnce sync.Once
	shared     *Metrics
)

// NewMetrics registers the collectors on registerer. A nil registerer yields
// a process-wide instance bound to the default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	sharedOnce.Do(func() {
		shared = register(prometheus.DefaultRegisterer)
	})
	return shared
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighcheck",
			Name:      "jobs_total",
			Help:      "Background job runs by task type and outcome.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighcheck",
			Name:      "jobs_failures_total",
			Help:      "Background job runs that returned an error.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weighcheck",
			Name:      "job_duration_seconds",
			Help:      "Wall time of background job runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 15, 30, 60, 120},
		}, []string{"job"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighcheck",
			Name:      "backup_uploads_total",
			Help:      "Backup snapshot uploads by transport and outcome.",
		}, []string{"transport", "status"}),
		lastUpload: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "weighcheck",
			Name:      "backup_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful upload per transport.",
		}, []string{"transport"}),
		now: time.Now,
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.uploads, m.lastUpload)
	return m
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job. Safe on a nil receiver.
func (m *Metrics) Track(job string) *Tracker {
	t := &Tracker{metrics: m, job: job, start: time.Now()}
	if m != nil && m.now != nil {
		t.start = m.now()
	}
	return t
}

// End records the run outcome and hands err back unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
		m.failures.WithLabelValues(t.job).Inc()
	}
	m.runs.WithLabelValues(t.job, outcome).Inc()
	m.duration.WithLabelValues(t.job).Observe(m.now().Sub(t.start).Seconds())
	return err
}

// AddBackupUpload counts one upload to transport and stamps the last success.
func (m *Metrics) AddBackupUpload(transport string, err error) {
	if m == nil || transport == "" {
		return
	}
	if err != nil {
		m.uploads.WithLabelValues(transport, outcomeFailure).Inc()
		return
	}
	m.uploads.WithLabelValues(transport, outcomeSuccess).Inc()
	m.lastUpload.WithLabelValues(transport).Set(float64(m.now().Unix()))
}

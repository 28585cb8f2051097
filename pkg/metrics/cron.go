package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// jobBuckets span 50ms to roughly 100s, the range a sweep batch lands in.
var jobBuckets = prometheus.ExponentialBuckets(0.05, 2, 12)

// CronJobMetrics counts job outcomes by job name. A nil receiver records nothing.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewCronJobMetrics registers on reg. A nil reg keeps the collectors unregistered.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	factory := promauto.With(reg)
	jobCounter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, []string{"job"})
	}
	return &CronJobMetrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of one cron job run.",
			Buckets:   jobBuckets,
		}, []string{"job"}),
		success: jobCounter("job_success_total", "Cron job runs that returned nil."),
		failure: jobCounter("job_failure_total", "Cron job runs that returned an error or panicked."),
		skipped: jobCounter("job_skipped_total", "Cron job runs skipped because another worker held the lock."),
	}
}

func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c != nil {
		c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
	}
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c != nil {
		c.success.WithLabelValues(normalizeLabel(job)).Inc()
	}
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c != nil {
		c.failure.WithLabelValues(normalizeLabel(job)).Inc()
	}
}

func (c *CronJobMetrics) IncSkipped(job string) {
	if c != nil {
		c.skipped.WithLabelValues(normalizeLabel(job)).Inc()
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

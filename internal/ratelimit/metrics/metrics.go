package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitRejectionsTotal        *prometheus.CounterVec
	RateLimitBucketsSweptTotal      prometheus.Counter
	RateLimitCleanupRunsTotal       *prometheus.CounterVec
	RateLimitCleanupDurationSeconds prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg so tests can use a
// private registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitRejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientiq_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter, by bucket kind",
		}, []string{"kind"}),
		RateLimitBucketsSweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "clientiq_ratelimit_buckets_swept_total",
			Help: "Idle rate limit buckets removed by the cleanup worker",
		}),
		RateLimitCleanupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientiq_ratelimit_cleanup_runs_total",
			Help: "Total number of bucket cleanup runs",
		}, []string{"status"}),
		RateLimitCleanupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "clientiq_ratelimit_cleanup_duration_seconds",
			Help: "Duration of bucket cleanup runs in seconds",
		}),
	}
}

func (m *Metrics) IncrementRejections(kind string) {
	if m == nil {
		return
	}
	m.RateLimitRejectionsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddBucketsSwept(count int) {
	if m == nil {
		return
	}
	m.RateLimitBucketsSweptTotal.Add(float64(count))
}

func (m *Metrics) IncrementCleanupRuns(status string) {
	if m == nil {
		return
	}
	m.RateLimitCleanupRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCleanupDuration(durationSeconds float64) {
	if m == nil {
		return
	}
	m.RateLimitCleanupDurationSeconds.Observe(durationSeconds)
}

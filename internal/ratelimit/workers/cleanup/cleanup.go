package cleanup

import (
	"context"
	"log/slog"
	"time"

	"clientiq/internal/ratelimit/metrics"
)

// CleanupResult contains the results of a cleanup run.
type CleanupResult struct {
	BucketsSwept int
	Duration     time.Duration
}

// BucketSweeper drops buckets that have not been touched within idle.
type BucketSweeper interface {
	Sweep(idle time.Duration) int
}

type Option func(*BucketCleanupService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *BucketCleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *BucketCleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithIdle sets how long a bucket may go unused before it is dropped. A
// dropped bucket comes back full, so idle must exceed the refill time.
func WithIdle(idle time.Duration) Option {
	return func(s *BucketCleanupService) {
		if idle > 0 {
			s.idle = idle
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BucketCleanupService) {
		s.metrics = m
	}
}

// BucketCleanupService bounds limiter memory by sweeping idle buckets.
type BucketCleanupService struct {
	store    BucketSweeper
	logger   *slog.Logger
	interval time.Duration
	idle     time.Duration
	metrics  *metrics.Metrics
}

func New(store BucketSweeper, opts ...Option) *BucketCleanupService {
	service := &BucketCleanupService{
		store:    store,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
		idle:     30 * time.Minute,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BucketCleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res := s.RunOnce(ctx)
			s.logger.DebugContext(ctx, "ratelimit_cleanup_completed",
				"buckets_swept", res.BucketsSwept,
				"duration_ms", res.Duration.Milliseconds(),
			)
		case <-ctx.Done():
			s.logger.Info("ratelimit cleanup worker stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce executes a single sweep and records it.
func (s *BucketCleanupService) RunOnce(_ context.Context) *CleanupResult {
	start := time.Now()
	swept := s.store.Sweep(s.idle)
	res := &CleanupResult{BucketsSwept: swept, Duration: time.Since(start)}

	s.metrics.AddBucketsSwept(swept)
	s.metrics.IncrementCleanupRuns("success")
	s.metrics.ObserveCleanupDuration(res.Duration.Seconds())
	return res
}

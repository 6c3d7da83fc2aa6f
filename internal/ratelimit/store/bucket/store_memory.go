package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"clientiq/internal/ratelimit/models"
)

// InMemoryBucketStore keeps one token bucket per key. Buckets idle longer
// than the sweep horizon are dropped by Sweep.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryBucketStore() *InMemoryBucketStore {
	return &InMemoryBucketStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *InMemoryBucketStore) WithClock(now func() time.Time) *InMemoryBucketStore {
	s.now = now
	return s
}

// Allow consumes one token from key's bucket, creating it full on first use.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit models.Limit) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(float64(limit.PerMinute)/60), max(limit.Burst, 1))}
		s.buckets[key] = b
	}
	b.lastSeen = now

	res := &models.RateLimitResult{Limit: b.limiter.Burst()}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = true
		res.Remaining = int(math.Floor(b.limiter.TokensAt(now)))
		res.ResetAt = now.Add(refillTime(b.limiter, now))
		return res, nil
	}

	// Reserve to learn the wait, then hand the token back.
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	res.RetryAfter = int(math.Ceil(delay.Seconds()))
	res.ResetAt = now.Add(delay)
	return res, nil
}

// Sweep removes buckets unused for longer than idle and returns how many.
func (s *InMemoryBucketStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	removed := 0
	for key, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// Len is the number of live buckets.
func (s *InMemoryBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// refillTime is how long until the bucket is full again.
func refillTime(l *rate.Limiter, now time.Time) time.Duration {
	missing := float64(l.Burst()) - l.TokensAt(now)
	if missing <= 0 || l.Limit() <= 0 {
		return 0
	}
	return time.Duration(missing / float64(l.Limit()) * float64(time.Second))
}

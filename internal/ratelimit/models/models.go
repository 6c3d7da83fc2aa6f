package models

import "time"

// RateLimitResult is the outcome of a single limiter check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int // seconds until the next request would be admitted
	ResetAt    time.Time
}

// Limit is a token bucket: Burst requests at once, refilled at PerMinute.
type Limit struct {
	PerMinute int
	Burst     int
}

// Enabled reports whether the limit admits anything at all; a zero limit
// disables limiting.
func (l Limit) Enabled() bool {
	return l.PerMinute > 0
}

// Stricter returns whichever result leaves the caller less headroom.
func Stricter(a, b *RateLimitResult) *RateLimitResult {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Allowed != b.Allowed:
		if !a.Allowed {
			return a
		}
		return b
	case !a.Allowed:
		if a.RetryAfter >= b.RetryAfter {
			return a
		}
		return b
	case a.Remaining <= b.Remaining:
		return a
	}
	return b
}

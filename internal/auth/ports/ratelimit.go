package ports

import (
	"context"
	"time"
)

// RateLimitPort lets the auth handler throttle login attempts without
// depending on the ratelimit module.
type RateLimitPort interface {
	// CheckAuthRateLimit consumes one attempt for identifier in the bound
	// tenant. It does not matter whether the identifier belongs to a user.
	CheckAuthRateLimit(ctx context.Context, identifier string) (*AuthRateLimitResult, error)
}

// AuthRateLimitResult is auth's view of a rate limit decision.
type AuthRateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // seconds until retry is allowed
	ResetAt    time.Time
}

package adapters

import (
	"context"

	"clientiq/internal/auth/ports"
	"clientiq/internal/ratelimit/models"
)

// AuthLimiter is the part of the ratelimit checker auth depends on.
type AuthLimiter interface {
	CheckAuthRateLimit(ctx context.Context, identifier string) (*models.RateLimitResult, error)
}

// RateLimitAdapter implements ports.RateLimitPort in-process on top of the
// ratelimit checker.
type RateLimitAdapter struct {
	checker AuthLimiter
}

func NewRateLimitAdapter(checker AuthLimiter) ports.RateLimitPort {
	return &RateLimitAdapter{checker: checker}
}

func (a *RateLimitAdapter) CheckAuthRateLimit(ctx context.Context, identifier string) (*ports.AuthRateLimitResult, error) {
	result, err := a.checker.CheckAuthRateLimit(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return &ports.AuthRateLimitResult{
		Allowed:    result.Allowed,
		Remaining:  result.Remaining,
		RetryAfter: result.RetryAfter,
		ResetAt:    result.ResetAt,
	}, nil
}

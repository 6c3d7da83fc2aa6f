package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"clientiq/internal/ratelimit/models"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	"clientiq/pkg/platform/privacy"
	"clientiq/pkg/requestcontext"
)

type RateLimiter interface {
	CheckIPRateLimit(ctx context.Context, ip string) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter RateLimiter
	logger  *slog.Logger
}

func New(limiter RateLimiter, logger *slog.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		logger:  logger,
	}
}

// RateLimit throttles by client address. A limiter failure lets the
// request through: throttling is never allowed to take login down.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.limiter.CheckIPRateLimit(ctx, ip)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check IP rate limit", "error", err, "ip_prefix", privacy.AnonymizeIP(ip))
				next.ServeHTTP(w, r)
				return
			}

			AddRateLimitHeaders(w, result)
			if !result.Allowed {
				WriteRateLimitExceeded(ctx, w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AddRateLimitHeaders adds X-RateLimit-* headers to the response.
func AddRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// WriteRateLimitExceeded answers 429 in the standard envelope.
func WriteRateLimitExceeded(ctx context.Context, w http.ResponseWriter, result *models.RateLimitResult) {
	retryAfter := max(result.RetryAfter, 1)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
}

package checker

import (
	"context"
	"fmt"
	"log/slog"

	"clientiq/internal/ratelimit/metrics"
	"clientiq/internal/ratelimit/models"
	"clientiq/pkg/platform/privacy"
	"clientiq/pkg/tenancy"
)

// BucketStore defines the persistence interface for rate limit buckets.
type BucketStore interface {
	// Allow consumes one request from key's bucket.
	Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error)
}

// Service answers rate limit checks for the authentication endpoints.
type Service struct {
	buckets    BucketStore
	ipLimit    models.Limit
	loginLimit models.Limit
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New builds a checker. ipLimit applies per client address across all
// tenants; loginLimit applies per tenant and login identifier.
func New(buckets BucketStore, ipLimit, loginLimit models.Limit, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, fmt.Errorf("bucket store is required")
	}
	svc := &Service{
		buckets:    buckets,
		ipLimit:    ipLimit,
		loginLimit: loginLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// CheckIPRateLimit consumes from the caller's address bucket.
func (s *Service) CheckIPRateLimit(ctx context.Context, ip string) (*models.RateLimitResult, error) {
	if !s.ipLimit.Enabled() {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	key := models.NewIPKey(ip)
	res, err := s.buckets.Allow(ctx, key.String(), s.ipLimit)
	if err != nil {
		return nil, fmt.Errorf("check ip rate limit: %w", err)
	}
	s.observe(ctx, key, res, "ip_prefix", privacy.AnonymizeIP(ip))
	return res, nil
}

// CheckAuthRateLimit consumes from the identifier bucket of the bound
// tenant. Identifiers are checked without regard to whether they exist.
func (s *Service) CheckAuthRateLimit(ctx context.Context, identifier string) (*models.RateLimitResult, error) {
	if !s.loginLimit.Enabled() {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	schema := tenancy.PublicSchema
	if scope, ok := tenancy.FromContext(ctx); ok {
		schema = scope.Schema
	}
	key := models.NewLoginKey(schema, identifier)
	res, err := s.buckets.Allow(ctx, key.String(), s.loginLimit)
	if err != nil {
		return nil, fmt.Errorf("check login rate limit: %w", err)
	}
	s.observe(ctx, key, res, "schema", schema)
	return res, nil
}

func (s *Service) observe(ctx context.Context, key models.RateLimitKey, res *models.RateLimitResult, attrs ...any) {
	if res.Allowed {
		return
	}
	s.metrics.IncrementRejections(string(key.Prefix()))
	args := append([]any{"kind", key.Prefix(), "retry_after", res.RetryAfter}, attrs...)
	s.logger.WarnContext(ctx, "rate limit exceeded", args...)
}

package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clientiq/internal/platform/database"
	"clientiq/internal/platform/metrics"
	tenantmodels "clientiq/internal/tenant/models"
)

// TenantLister returns the tenants whose schemas are still served.
type TenantLister interface {
	ListActiveTenants(ctx context.Context) ([]*tenantmodels.Tenant, error)
}

// RefreshTokenStore exposes cleanup for refresh tokens of the bound schema.
type RefreshTokenStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CleanupResult summarizes the deletions performed by a cleanup run.
type CleanupResult struct {
	TenantsVisited       int
	DeletedRefreshTokens int
}

// CleanupService periodically removes expired refresh tokens from every
// active tenant schema. Each schema is bound explicitly; nothing is
// inherited from a request.
type CleanupService struct {
	tenants  TenantLister
	binder   database.Binder
	tokens   RefreshTokenStore
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCleanupMetrics(m *metrics.Metrics) CleanupOption {
	return func(s *CleanupService) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) CleanupOption {
	return func(s *CleanupService) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a CleanupService with required collaborators and options applied.
func New(tenants TenantLister, binder database.Binder, tokens RefreshTokenStore, opts ...CleanupOption) (*CleanupService, error) {
	if tenants == nil || binder == nil || tokens == nil {
		return nil, fmt.Errorf("tenants, binder, and tokens are required")
	}
	svc := &CleanupService{
		tenants:  tenants,
		binder:   binder,
		tokens:   tokens,
		interval: 10 * time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "auth cleanup failed", "error", err)
			}
			s.logger.DebugContext(ctx, "auth_cleanup_completed",
				"tenants", res.TenantsVisited,
				"deleted_refresh_tokens", res.DeletedRefreshTokens,
			)
		case <-ctx.Done():
			s.logger.Info("auth cleanup worker stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce purges expired refresh tokens tenant by tenant. A failing schema
// does not stop the others; every failure is returned joined.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult

	tenants, err := s.tenants.ListActiveTenants(ctx)
	if err != nil {
		return res, fmt.Errorf("list active tenants: %w", err)
	}

	now := s.now()
	var errs []error
	for _, t := range tenants {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		deleted, err := s.purgeTenant(ctx, t, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", t.Schema, err))
			continue
		}
		res.TenantsVisited++
		res.DeletedRefreshTokens += deleted
	}

	s.metrics.AddRefreshTokensPurged(res.DeletedRefreshTokens)
	return res, errors.Join(errs...)
}

func (s *CleanupService) purgeTenant(ctx context.Context, t *tenantmodels.Tenant, now time.Time) (int, error) {
	bound, release, err := s.binder.Bind(ctx, t.Scope())
	if err != nil {
		return 0, err
	}
	defer release()

	deleted, err := s.tokens.DeleteExpired(bound, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return deleted, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clientiq/internal/tenant/models"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
)

// Store interfaces define persistence contracts.

type TenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
	Deactivate(ctx context.Context, tenantID id.TenantID, now time.Time) error
	ChangeDomain(ctx context.Context, tenantID id.TenantID, domain string, now time.Time) error
	Delete(ctx context.Context, tenantID id.TenantID) error
}

// Provisioner prepares the schema of a new tenant.
type Provisioner interface {
	Provision(ctx context.Context, scope tenancy.Scope) error
}

// Seeder fills a freshly provisioned schema: default roles and the optional
// first administrator. ctx is already bound to the tenant.
type Seeder interface {
	SeedTenant(ctx context.Context, admin *models.InitialAdmin) error
}

func requireTenantID(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	return nil
}

// Error wrapping helpers translate sentinel errors to domain errors.

func wrapTenantErr(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "schema or domain already in use")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "tenant is inactive")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

// auditEmitter writes directory changes as structured audit log lines.
type auditEmitter struct {
	logger *slog.Logger
}

func (e *auditEmitter) emit(ctx context.Context, event string, attributes ...any) {
	if e.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	attributes = append(attributes, "event", event, "log_type", "audit")
	e.logger.InfoContext(ctx, event, attributes...)
}

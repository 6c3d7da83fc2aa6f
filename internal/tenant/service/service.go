package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"clientiq/internal/platform/database"
	"clientiq/internal/platform/metrics"
	"clientiq/internal/platform/tracer"
	"clientiq/internal/tenant/models"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/validation"
)

// Service owns the tenant directory: onboarding, lifecycle and host
// resolution.
type Service struct {
	tenants     TenantStore
	provisioner Provisioner
	binder      database.Binder
	seeder      Seeder
	tx          database.TxRunner
	resolver    hostResolver
	metrics     *metrics.Metrics
	tracer      *tracer.Tracer
	logger      *slog.Logger
	audit       *auditEmitter
}

// serviceConfig holds optional dependencies for the service.
type serviceConfig struct {
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        *tracer.Tracer
	seeder        Seeder
	baseDomain    string
	platformHosts map[string]struct{}
}

// Option configures a service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithTracer(t *tracer.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = t
	}
}

// WithSeeder runs s inside every newly provisioned schema.
func WithSeeder(s Seeder) Option {
	return func(c *serviceConfig) {
		c.seeder = s
	}
}

// WithHosts configures resolution: tenants live at <label>.<baseDomain>;
// platformHosts are served with the platform scope.
func WithHosts(baseDomain string, platformHosts map[string]struct{}) Option {
	return func(c *serviceConfig) {
		c.baseDomain = baseDomain
		c.platformHosts = platformHosts
	}
}

// New wires the service. tx must open public transactions and binder must
// bind tenant schemas for seeding.
func New(tenants TenantStore, provisioner Provisioner, binder database.Binder, tx database.TxRunner, opts ...Option) *Service {
	cfg := &serviceConfig{baseDomain: "localhost"}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tenants:     tenants,
		provisioner: provisioner,
		binder:      binder,
		seeder:      cfg.seeder,
		tx:          tx,
		resolver:    newHostResolver(cfg.baseDomain, cfg.platformHosts),
		metrics:     cfg.metrics,
		tracer:      cfg.tracer,
		logger:      logger,
		audit:       &auditEmitter{logger: logger},
	}
}

// CreateTenantCommand is the onboarding input.
type CreateTenantCommand struct {
	Name   string
	Schema string
	Domain string
	Admin  *models.InitialAdmin
}

// CreateTenant registers the tenant, provisions its schema and seeds it.
// A tenant whose provisioning fails is deactivated so it never resolves.
func (s *Service) CreateTenant(ctx context.Context, cmd CreateTenantCommand) (_ *models.Tenant, err error) {
	ctx, span := s.tracer.Start(ctx, "tenant.create", attribute.String("schema", cmd.Schema))
	defer func() { span.End(err) }()

	now := requestcontext.Now(ctx)
	tenant, err := models.NewTenant(id.TenantID(uuid.New()), cmd.Name, cmd.Schema, cmd.Domain, now)
	if err != nil {
		return nil, err
	}

	if err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tenants.Create(txCtx, tenant); err != nil {
			return wrapTenantErr(err, "failed to create tenant")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.provisionAndSeed(ctx, tenant, cmd.Admin); err != nil {
		s.logger.ErrorContext(ctx, "tenant provisioning failed, releasing directory entry",
			"tenant_id", tenant.ID,
			"schema", tenant.Schema,
			"error", err,
		)
		s.release(ctx, tenant, now)
		return nil, provisionError(err)
	}

	s.metrics.IncrementTenantsCreated()
	s.audit.emit(ctx, "tenant_created",
		"tenant_id", tenant.ID.String(),
		"schema", tenant.Schema,
		"domain", tenant.Domain,
	)
	return tenant, nil
}

// release undoes the directory entry of a tenant whose schema never became
// usable, so the same schema and subdomain can be retried. Provisioning and
// seeding are idempotent, which makes a leftover schema harmless. When the
// entry cannot be removed the tenant is deactivated so it never resolves.
func (s *Service) release(ctx context.Context, tenant *models.Tenant, now time.Time) {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.tenants.Delete(txCtx, tenant.ID)
	})
	if err == nil {
		return
	}
	s.logger.ErrorContext(ctx, "failed to remove unprovisioned tenant, deactivating", "tenant_id", tenant.ID, "error", err)
	if derr := s.tenants.Deactivate(ctx, tenant.ID, now); derr != nil {
		s.logger.ErrorContext(ctx, "failed to deactivate unprovisioned tenant", "tenant_id", tenant.ID, "error", derr)
	}
}

// provisionError keeps validation failures from the first administrator
// visible to the caller; anything else is internal.
func provisionError(err error) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && domainErr.Code != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision tenant")
}

func (s *Service) provisionAndSeed(ctx context.Context, tenant *models.Tenant, admin *models.InitialAdmin) error {
	scope := tenant.Scope()
	if err := s.provisioner.Provision(ctx, scope); err != nil {
		return err
	}
	if s.seeder == nil {
		return nil
	}
	bound, release, err := s.binder.Bind(ctx, scope)
	if err != nil {
		return err
	}
	defer release()
	return s.seeder.SeedTenant(bound, admin)
}

func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	return tenant, nil
}

func (s *Service) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to list tenants")
	}
	return tenants, nil
}

// ListActiveTenants is used by background work that iterates every schema.
func (s *Service) ListActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	all, err := s.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, t := range all {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

// DeactivateTenant soft-deletes the tenant and retires its domain. Calling
// it on an inactive tenant returns the tenant unchanged.
func (s *Service) DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	var tenant *models.Tenant
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.tenants.FindByID(txCtx, tenantID)
		if err != nil {
			return wrapTenantErr(err, "failed to load tenant")
		}
		if !t.Deactivate(requestcontext.Now(txCtx)) {
			tenant = t
			return nil
		}
		if err := s.tenants.Deactivate(txCtx, tenantID, *t.DeactivatedAt); err != nil {
			return wrapTenantErr(err, "failed to deactivate tenant")
		}
		s.audit.emit(txCtx, "tenant_deactivated", "tenant_id", tenantID.String())
		tenant = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// ChangeDomain moves the tenant to a new subdomain. The old subdomain stops
// resolving immediately.
func (s *Service) ChangeDomain(ctx context.Context, tenantID id.TenantID, domain string) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !validation.IsSubdomain(domain) {
		return nil, dErrors.New(dErrors.CodeValidation, "domain must be a single DNS label")
	}

	var tenant *models.Tenant
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tenants.ChangeDomain(txCtx, tenantID, domain, requestcontext.Now(txCtx)); err != nil {
			return wrapTenantErr(err, "failed to change domain")
		}
		t, err := s.tenants.FindByID(txCtx, tenantID)
		if err != nil {
			return wrapTenantErr(err, "failed to load tenant")
		}
		tenant = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.emit(ctx, "tenant_domain_changed", "tenant_id", tenantID.String(), "domain", domain)
	return tenant, nil
}

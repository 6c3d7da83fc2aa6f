package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"clientiq/internal/platform/database"
	"clientiq/internal/tenant/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

// PostgresStore persists the directory in the public schema. Table names are
// schema-qualified so a mis-bound connection can never shadow them.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant directory.
func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type tenantRow struct {
	ID            uuid.UUID    `db:"id"`
	Name          string       `db:"name"`
	Schema        string       `db:"schema_name"`
	Domain        string       `db:"domain"`
	Active        bool         `db:"is_active"`
	CreatedAt     time.Time    `db:"created_at"`
	DeactivatedAt sql.NullTime `db:"deactivated_at"`
}

func (r tenantRow) toModel() *models.Tenant {
	t := &models.Tenant{
		ID:        id.TenantID(r.ID),
		Name:      r.Name,
		Schema:    r.Schema,
		Domain:    r.Domain,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
	if r.DeactivatedAt.Valid {
		at := r.DeactivatedAt.Time
		t.DeactivatedAt = &at
	}
	return t
}

const selectTenant = `
	SELECT t.id, t.name, t.schema_name, COALESCE(d.domain, '') AS domain,
	       t.is_active, t.created_at, t.deactivated_at
	FROM public.tenants t
	LEFT JOIN public.tenant_domains d ON d.tenant_id = t.id AND d.is_active
`

// Create inserts the tenant and its first mapping. Run it inside RunInTx so
// both rows land together.
func (s *PostgresStore) Create(ctx context.Context, t *models.Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant is required")
	}
	q := database.PublicQuerier(ctx, s.db)

	_, err := q.ExecContext(ctx, `
		INSERT INTO public.tenants (id, name, schema_name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(t.ID), t.Name, t.Schema, t.Active, t.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("schema name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return s.insertMapping(ctx, q, t.ID, t.Domain, t.CreatedAt)
}

func (s *PostgresStore) insertMapping(ctx context.Context, q database.Querier, tenantID id.TenantID, domain string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO public.tenant_domains (id, tenant_id, domain, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
	`, uuid.New(), uuid.UUID(tenantID), domain, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("domain taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert domain mapping: %w", err)
	}
	return nil
}

// FindByID retrieves a tenant by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	var row tenantRow
	err := database.PublicQuerier(ctx, s.db).GetContext(ctx, &row, selectTenant+` WHERE t.id = $1`, uuid.UUID(tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return row.toModel(), nil
}

// FindByDomain follows the active mapping for domain.
func (s *PostgresStore) FindByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	var row tenantRow
	err := database.PublicQuerier(ctx, s.db).GetContext(ctx, &row, selectTenant+` WHERE d.domain = $1`, domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by domain: %w", err)
	}
	return row.toModel(), nil
}

// List returns every tenant ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Tenant, error) {
	var rows []tenantRow
	if err := database.PublicQuerier(ctx, s.db).SelectContext(ctx, &rows, selectTenant+` ORDER BY t.created_at, t.schema_name`); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	out := make([]*models.Tenant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Deactivate marks the tenant inactive and retires its mapping.
func (s *PostgresStore) Deactivate(ctx context.Context, tenantID id.TenantID, now time.Time) error {
	q := database.PublicQuerier(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE public.tenants
		SET is_active = FALSE, deactivated_at = COALESCE(deactivated_at, $2)
		WHERE id = $1
	`, uuid.UUID(tenantID), now)
	if err != nil {
		return fmt.Errorf("deactivate tenant: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("deactivate tenant rows: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return s.retireMappings(ctx, q, tenantID, now)
}

func (s *PostgresStore) retireMappings(ctx context.Context, q database.Querier, tenantID id.TenantID, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE public.tenant_domains
		SET is_active = FALSE, deactivated_at = $2
		WHERE tenant_id = $1 AND is_active
	`, uuid.UUID(tenantID), now)
	if err != nil {
		return fmt.Errorf("retire domain mappings: %w", err)
	}
	return nil
}

// ChangeDomain retires the current mapping and activates domain. Run it
// inside RunInTx; the partial unique index rejects a domain that is active
// elsewhere.
func (s *PostgresStore) ChangeDomain(ctx context.Context, tenantID id.TenantID, domain string, now time.Time) error {
	current, err := s.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !current.Active {
		return sentinel.ErrInvalidState
	}
	if current.Domain == domain {
		return nil
	}
	q := database.PublicQuerier(ctx, s.db)
	if err := s.retireMappings(ctx, q, tenantID, now); err != nil {
		return err
	}
	return s.insertMapping(ctx, q, tenantID, domain, now)
}

// Delete removes the tenant and its mapping history. It is only used to
// roll back an onboarding whose schema never became usable; run it inside
// RunInTx.
func (s *PostgresStore) Delete(ctx context.Context, tenantID id.TenantID) error {
	q := database.PublicQuerier(ctx, s.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM public.tenant_domains WHERE tenant_id = $1`, uuid.UUID(tenantID)); err != nil {
		return fmt.Errorf("delete domain mappings: %w", err)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM public.tenants WHERE id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete tenant rows: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

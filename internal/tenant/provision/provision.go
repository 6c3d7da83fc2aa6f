// Package provision creates tenant schemas.
package provision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"

	"clientiq/internal/platform/database"
	"clientiq/migrations"
	"clientiq/pkg/tenancy"
)

// Postgres creates the schema and applies the embedded tenant migrations.
type Postgres struct {
	db     *sqlx.DB
	router *database.Router
}

func NewPostgres(db *sqlx.DB, router *database.Router) *Postgres {
	return &Postgres{db: db, router: router}
}

// Provision is idempotent: existing schemas are migrated forward, never dropped.
func (p *Postgres) Provision(ctx context.Context, scope tenancy.Scope) error {
	if _, err := p.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{scope.Schema}.Sanitize()); err != nil {
		return fmt.Errorf("create schema %s: %w", scope.Schema, err)
	}

	bound, release, err := p.router.Bind(ctx, scope)
	if err != nil {
		return err
	}
	defer release()

	q, err := database.TenantQuerier(bound)
	if err != nil {
		return err
	}
	if err := migrations.ApplyTenant(bound, q); err != nil {
		return fmt.Errorf("migrate schema %s: %w", scope.Schema, err)
	}
	return nil
}

// Noop is used with the in-memory stores, which partition by schema name
// on first write.
type Noop struct{}

func (Noop) Provision(context.Context, tenancy.Scope) error { return nil }

//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"clientiq/migrations"
)

// PostgresContainer wraps a testcontainers Postgres instance with the public
// directory migrated. Tenant schemas are created per test.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sqlx.DB
}

// NewPostgresContainer starts a new Postgres container with the public
// migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("clientiq_test"),
		postgres.WithUsername("clientiq"),
		postgres.WithPassword("clientiq_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := migrations.ApplyPublic(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Ryuk removes the container when the test process exits; the Manager
	// shares it across suites, so no t.Cleanup here.
	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// Reset drops every tenant schema and empties the directory so suites start
// from a clean database without restarting the container.
func (p *PostgresContainer) Reset(ctx context.Context) error {
	var schemas []string
	if err := p.DB.SelectContext(ctx, &schemas, `
		SELECT nspname FROM pg_namespace
		WHERE nspname NOT IN ('public', 'information_schema')
		  AND nspname NOT LIKE 'pg\_%'`); err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}
	for _, s := range schemas {
		if _, err := p.DB.ExecContext(ctx, "DROP SCHEMA "+pgx.Identifier{s}.Sanitize()+" CASCADE"); err != nil {
			return fmt.Errorf("drop schema %s: %w", s, err)
		}
	}
	if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE tenant_domains, tenants CASCADE"); err != nil {
		return fmt.Errorf("truncate directory: %w", err)
	}
	return nil
}

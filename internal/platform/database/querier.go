package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"clientiq/pkg/tenancy"
)

// Querier is the statement surface shared by *sqlx.DB, *sqlx.Conn and *sqlx.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

var (
	_ Querier = (*sqlx.DB)(nil)
	_ Querier = (*sqlx.Conn)(nil)
	_ Querier = (*sqlx.Tx)(nil)
)

// binding is what Bind and RunInTx leave in the context. A binding always
// records the schema it belongs to so a tenant handle is never mistaken for a
// public one.
type binding struct {
	schema string
	conn   *sqlx.Conn
	tx     *sqlx.Tx
}

type bindingKey struct{}

func withBinding(ctx context.Context, b *binding) context.Context {
	return context.WithValue(ctx, bindingKey{}, b)
}

func bindingFrom(ctx context.Context) (*binding, bool) {
	b, ok := ctx.Value(bindingKey{}).(*binding)
	return b, ok && b != nil
}

// TenantQuerier returns the handle for the tenant schema bound to ctx: the
// open transaction if there is one, else the dedicated connection. It never
// falls back to the pool.
func TenantQuerier(ctx context.Context) (Querier, error) {
	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return nil, err
	}
	b, ok := bindingFrom(ctx)
	if !ok || b.schema != scope.Schema {
		return nil, tenancy.ErrUnbound
	}
	if b.tx != nil {
		return b.tx, nil
	}
	return b.conn, nil
}

// PublicQuerier returns the public transaction carried by ctx, or db.
// Tenant bindings in ctx are ignored.
func PublicQuerier(ctx context.Context, db *sqlx.DB) Querier {
	if b, ok := bindingFrom(ctx); ok && b.schema == tenancy.PublicSchema && b.tx != nil {
		return b.tx
	}
	return db
}

// IsUniqueViolation reports a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports a Postgres foreign key failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

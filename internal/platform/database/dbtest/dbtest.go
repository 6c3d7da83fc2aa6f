// Package dbtest wires sqlmock into the schema router for store tests.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/tenancy"
)

// New returns a sqlmock-backed pool. Statements are matched as regular
// expressions, in order.
func New(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, database.DriverName), mock
}

// Scope returns a tenant scope for schema with a fresh tenant id.
func Scope(schema string) tenancy.Scope {
	return tenancy.Scope{TenantID: id.NewTenantID(), Schema: schema, Domain: schema}
}

// Bind binds scope through a real Router. The search_path reset is expected
// and the connection released when the test finishes.
func Bind(t *testing.T, db *sqlx.DB, mock sqlmock.Sqlmock, scope tenancy.Scope) context.Context {
	t.Helper()
	mock.ExpectExec(regexp.QuoteMeta("SET search_path TO")).WillReturnResult(sqlmock.NewResult(0, 0))

	router := database.NewRouter(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, release, err := router.Bind(context.Background(), scope)
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectExec(regexp.QuoteMeta("RESET search_path")).WillReturnResult(sqlmock.NewResult(0, 0))
		release()
	})
	return ctx
}

package provision

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/tenancy"
)

func TestPostgres_Provision(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, database.DriverName)
	router := database.NewRouter(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "acme"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "acme"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS roles`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS companies`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`RESET search_path`).WillReturnResult(sqlmock.NewResult(0, 0))

	scope := tenancy.Scope{TenantID: id.TenantID(uuid.New()), Schema: "acme", Domain: "acme"}
	require.NoError(t, NewPostgres(db, router).Provision(context.Background(), scope))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Provision(context.Background(), tenancy.Scope{Schema: "acme"}))
}

package role

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientiq/internal/authz/models"
	"clientiq/internal/platform/database/dbtest"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/tenancy"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPostgresStore_Create(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	role, err := models.NewRole(id.NewRoleID(), "Support", "help desk", []string{"contacts.view", "companies.view"}, now)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roles (id,name,description,created_at,updated_at) VALUES ($1,$2,$3,$4,$5)")).
		WithArgs(uuid.UUID(role.ID), "Support", "help desk", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO role_permissions (role_id,permission_code) VALUES ($1,$2),($3,$4)")).
		WithArgs(uuid.UUID(role.ID), "companies.view", uuid.UUID(role.ID), "contacts.view").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewPostgres().Create(ctx, role))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDuplicateName(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	role, err := models.NewRole(id.NewRoleID(), "Support", "", nil, now)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO roles").WillReturnError(&pgconn.PgError{Code: "23505"})

	assert.ErrorIs(t, NewPostgres().Create(ctx, role), sentinel.ErrAlreadyUsed)
}

func TestPostgresStore_FindByID(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	roleID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1")).
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows(roleColumns).AddRow(roleID.String(), "Support", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role_id, permission_code FROM role_permissions WHERE role_id IN ($1)")).
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "permission_code"}).
			AddRow(roleID.String(), "contacts.view").
			AddRow(roleID.String(), "contacts.create"))

	role, err := NewPostgres().FindByID(ctx, id.RoleID(roleID))
	require.NoError(t, err)
	assert.Equal(t, "Support", role.Name)
	assert.True(t, role.Has("contacts.create"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByIDNotFound(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))

	mock.ExpectQuery("SELECT (.+) FROM roles").WillReturnRows(sqlmock.NewRows(roleColumns))

	_, err := NewPostgres().FindByID(ctx, id.NewRoleID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_ReplacePermissions(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))
	roleID := id.NewRoleID()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE roles SET updated_at = $1 WHERE id = $2")).
		WithArgs(now, uuid.UUID(roleID)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM role_permissions WHERE role_id = $1")).
		WithArgs(uuid.UUID(roleID)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO role_permissions")).
		WithArgs(uuid.UUID(roleID), "contacts.view").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres().ReplacePermissions(ctx, roleID, []string{"contacts.view"}, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplacePermissionsUnknownRole(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := dbtest.Bind(t, db, mock, dbtest.Scope("acme"))

	mock.ExpectExec("UPDATE roles").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewPostgres().ReplacePermissions(ctx, id.NewRoleID(), nil, now), sentinel.ErrNotFound)
}

func TestPostgresStore_RequiresBoundSchema(t *testing.T) {
	_, err := NewPostgres().List(tenancy.WithScope(t.Context(), dbtest.Scope("acme")))
	assert.ErrorIs(t, err, tenancy.ErrUnbound)
}

package migrations

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_Ordered(t *testing.T) {
	names, err := Files(TenantFS, "tenant")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant/0001_identity.up.sql", "tenant/0002_crm.up.sql"}, names)

	names, err = Files(PublicFS, "public")
	require.NoError(t, err)
	assert.Equal(t, []string{"public/0001_tenant_directory.up.sql"}, names)
}

func TestTenantMigrations_AreSchemaUnqualified(t *testing.T) {
	names, err := Files(TenantFS, "tenant")
	require.NoError(t, err)
	for _, name := range names {
		body, err := TenantFS.ReadFile(name)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "public.", name)
	}
}

func TestApplyTenant_RunsEachFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS roles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS companies").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, ApplyTenant(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
)

func TestNewTenant(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tenantID := id.TenantID(uuid.New())

	t.Run("normalizes input", func(t *testing.T) {
		tenant, err := NewTenant(tenantID, "  Acme Corp ", "ACME", "Acme", now)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", tenant.Name)
		assert.Equal(t, "acme", tenant.Schema)
		assert.Equal(t, "acme", tenant.Domain)
		assert.True(t, tenant.Active)
		assert.Equal(t, now, tenant.CreatedAt)
	})

	tests := []struct {
		name, tenant, schema, domain string
	}{
		{"empty name", " ", "acme", "acme"},
		{"long name", strings.Repeat("a", 101), "acme", "acme"},
		{"public schema", "Acme", "public", "acme"},
		{"pg schema", "Acme", "pg_toast", "acme"},
		{"information schema", "Acme", "information_schema", "acme"},
		{"quoted schema", "Acme", `acme"x`, "acme"},
		{"dotted domain", "Acme", "acme", "acme.example"},
		{"empty domain", "Acme", "acme", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTenant(tenantID, tt.tenant, tt.schema, tt.domain, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func TestTenant_Deactivate(t *testing.T) {
	now := time.Now()
	tenant, err := NewTenant(id.TenantID(uuid.New()), "Acme", "acme", "acme", now)
	require.NoError(t, err)

	assert.True(t, tenant.Deactivate(now))
	assert.False(t, tenant.Active)
	assert.Empty(t, tenant.Domain)
	require.NotNil(t, tenant.DeactivatedAt)

	assert.False(t, tenant.Deactivate(now.Add(time.Hour)), "second call is a no-op")
	assert.Equal(t, now, *tenant.DeactivatedAt)
}

func TestTenant_Scope(t *testing.T) {
	tenant, err := NewTenant(id.TenantID(uuid.New()), "Acme", "acme", "acme", time.Now())
	require.NoError(t, err)

	scope := tenant.Scope()
	assert.Equal(t, tenant.ID, scope.TenantID)
	assert.Equal(t, "acme", scope.Schema)
	assert.False(t, scope.IsPlatform())
}

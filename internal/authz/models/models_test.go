package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
)

func TestCatalog(t *testing.T) {
	codes := map[string]bool{}
	for _, p := range Catalog() {
		assert.False(t, codes[p.Code], "duplicate %s", p.Code)
		codes[p.Code] = true
	}
	assert.Len(t, codes, 19)
	assert.True(t, codes["contacts.view"])
	assert.True(t, codes["activities.delete"])
	assert.True(t, codes[PermRolesManage])
	assert.False(t, IsKnownPermission("contacts.export"))
}

func TestNewRole(t *testing.T) {
	now := time.Now()

	role, err := NewRole(id.NewRoleID(), "  Support ", "", []string{"contacts.view", " CONTACTS.VIEW", "companies.view"}, now)
	require.NoError(t, err)
	assert.Equal(t, "Support", role.Name)
	assert.Equal(t, []string{"companies.view", "contacts.view"}, role.Permissions)
	assert.True(t, role.Has("contacts.view"))
	assert.False(t, role.Has("contacts.delete"))

	_, err = NewRole(id.NewRoleID(), "", "", nil, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewRole(id.NewRoleID(), "Bad", "", []string{"contacts.export"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSetPermissions(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	role, err := NewRole(id.NewRoleID(), "Support", "", []string{"contacts.view"}, created)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, role.SetPermissions([]string{"activities.create"}, now))
	assert.Equal(t, []string{"activities.create"}, role.Permissions)
	assert.Equal(t, now, role.UpdatedAt)

	require.Error(t, role.SetPermissions([]string{"nope"}, now))
	assert.Equal(t, []string{"activities.create"}, role.Permissions)
}

func TestDefaultRoles(t *testing.T) {
	roles := map[string]DefaultRole{}
	for _, r := range DefaultRoles() {
		roles[r.Name] = r
	}
	require.Len(t, roles, 4)

	assert.Len(t, roles[RoleAdministrator].Permissions, len(Catalog()))
	assert.Contains(t, roles[RoleSalesManager].Permissions, PermUsersView)
	assert.NotContains(t, roles[RoleSalesManager].Permissions, PermUsersManage)

	rep := roles[RoleSalesRep].Permissions
	assert.Contains(t, rep, "opportunities.update")
	assert.Contains(t, rep, "activities.delete")
	assert.NotContains(t, rep, "contacts.delete")

	for _, code := range roles[RoleReadOnly].Permissions {
		assert.Regexp(t, `\.view$`, code)
	}
}

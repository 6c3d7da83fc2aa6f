package seeder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmodels "clientiq/internal/auth/models"
	authservice "clientiq/internal/auth/service"
	userStore "clientiq/internal/auth/store/user"
	authzmodels "clientiq/internal/authz/models"
	crmmodels "clientiq/internal/crm/models"
	crmservice "clientiq/internal/crm/service"
	crmstore "clientiq/internal/crm/store"
	"clientiq/internal/platform/database"
	tenantmodels "clientiq/internal/tenant/models"
	tenantservice "clientiq/internal/tenant/service"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/tenancy"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubRoles struct {
	roles map[string]*authzmodels.Role
	err   error
	calls int
}

func (s *stubRoles) SeedDefaults(context.Context) (map[string]*authzmodels.Role, error) {
	s.calls++
	return s.roles, s.err
}

type stubUsers struct {
	got []authservice.CreateUserCommand
	err error
}

func (s *stubUsers) CreateUser(_ context.Context, cmd authservice.CreateUserCommand) (*authmodels.User, error) {
	s.got = append(s.got, cmd)
	if s.err != nil {
		return nil, s.err
	}
	return &authmodels.User{ID: id.NewUserID(), Email: cmd.Email}, nil
}

func adminRoles() map[string]*authzmodels.Role {
	return map[string]*authzmodels.Role{
		authzmodels.RoleAdministrator: {ID: id.NewRoleID(), Name: authzmodels.RoleAdministrator},
	}
}

func TestSeedTenantCreatesAdministrator(t *testing.T) {
	roles := &stubRoles{roles: adminRoles()}
	users := &stubUsers{}

	err := New(roles, users, discard).SeedTenant(context.Background(), &tenantmodels.InitialAdmin{
		Email: "admin@acme.com", Password: "acme-pw1", FirstName: "Ada",
	})

	require.NoError(t, err)
	require.Len(t, users.got, 1)
	assert.Equal(t, authservice.CreateUserCommand{
		Email:     "admin@acme.com",
		Password:  "acme-pw1",
		FirstName: "Ada",
		RoleID:    roles.roles[authzmodels.RoleAdministrator].ID,
		Admin:     true,
	}, users.got[0])
}

func TestSeedTenantWithoutAdminOnlySeedsRoles(t *testing.T) {
	roles := &stubRoles{roles: adminRoles()}
	users := &stubUsers{}

	require.NoError(t, New(roles, users, discard).SeedTenant(context.Background(), nil))
	assert.Equal(t, 1, roles.calls)
	assert.Empty(t, users.got)
}

func TestSeedTenantPropagatesFailures(t *testing.T) {
	err := New(&stubRoles{err: errors.New("boom")}, &stubUsers{}, discard).
		SeedTenant(context.Background(), &tenantmodels.InitialAdmin{Email: "a@b.c"})
	assert.ErrorContains(t, err, "seed roles")

	err = New(&stubRoles{roles: map[string]*authzmodels.Role{}}, &stubUsers{}, discard).
		SeedTenant(context.Background(), &tenantmodels.InitialAdmin{Email: "a@b.c"})
	assert.ErrorContains(t, err, "administrator role missing")

	err = New(&stubRoles{roles: adminRoles()}, &stubUsers{err: dErrors.New(dErrors.CodeConflict, "email already in use")}, discard).
		SeedTenant(context.Background(), &tenantmodels.InitialAdmin{Email: "a@b.c"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

type stubTenants struct {
	existing map[string]bool
	created  []tenantservice.CreateTenantCommand
}

func (s *stubTenants) CreateTenant(_ context.Context, cmd tenantservice.CreateTenantCommand) (*tenantmodels.Tenant, error) {
	if s.existing[cmd.Schema] {
		return nil, dErrors.New(dErrors.CodeConflict, "schema or domain already in use")
	}
	s.created = append(s.created, cmd)
	return tenantmodels.NewTenant(id.NewTenantID(), cmd.Name, cmd.Schema, cmd.Domain, time.Now())
}

func TestDemoSeedsTenantsAndRecords(t *testing.T) {
	tenants := &stubTenants{existing: map[string]bool{"widgets": true}}
	store := crmstore.NewInMemory()
	crm := crmservice.New(store, userStore.New(), database.NewMemoryTx(), crmservice.WithLogger(discard))

	require.NoError(t, NewDemo(tenants, database.ScopeBinder{}, crm, discard).Seed(context.Background()))

	require.Len(t, tenants.created, 1)
	acme := tenants.created[0]
	assert.Equal(t, "acme", acme.Schema)
	require.NotNil(t, acme.Admin)
	assert.Equal(t, "admin@acme.com", acme.Admin.Email)

	ctx := tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: "acme"})
	opps, err := store.ListOpportunities(ctx, crmmodels.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, opps.Total)
	assert.False(t, opps.Items[0].CompanyID.IsNil())
	assert.False(t, opps.Items[0].ContactID.IsNil())

	activities, err := store.ListActivities(ctx, crmmodels.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, activities.Total)
}

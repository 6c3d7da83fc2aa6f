package role

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clientiq/internal/authz/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/tenancy"
)

type InMemoryRoleSuite struct {
	suite.Suite
	store   *InMemory
	acme    context.Context
	widgets context.Context
	now     time.Time
}

func TestInMemoryRoleSuite(t *testing.T) {
	suite.Run(t, new(InMemoryRoleSuite))
}

func (s *InMemoryRoleSuite) SetupTest() {
	s.store = NewInMemory()
	s.acme = tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: "acme"})
	s.widgets = tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: "widgets"})
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryRoleSuite) create(ctx context.Context, name string, perms ...string) *models.Role {
	role, err := models.NewRole(id.NewRoleID(), name, "", perms, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, role))
	return role
}

func (s *InMemoryRoleSuite) TestCreateAndFind() {
	role := s.create(s.acme, "Support", "contacts.view")

	got, err := s.store.FindByID(s.acme, role.ID)
	s.Require().NoError(err)
	s.Equal(role, got)

	got, err = s.store.FindByName(s.acme, "support")
	s.Require().NoError(err)
	s.Equal(role.ID, got.ID)
}

func (s *InMemoryRoleSuite) TestDuplicateNameWithinTenant() {
	s.create(s.acme, "Support")

	dup, err := models.NewRole(id.NewRoleID(), "SUPPORT", "", nil, s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.acme, dup), sentinel.ErrAlreadyUsed)

	s.NoError(s.store.Create(s.widgets, dup))
}

func (s *InMemoryRoleSuite) TestTenantsArePartitioned() {
	role := s.create(s.acme, "Support")

	_, err := s.store.FindByID(s.widgets, role.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	roles, err := s.store.List(s.widgets)
	s.Require().NoError(err)
	s.Empty(roles)
}

func (s *InMemoryRoleSuite) TestUnboundContextFails() {
	_, err := s.store.List(context.Background())
	s.ErrorIs(err, tenancy.ErrUnbound)
}

func (s *InMemoryRoleSuite) TestListSortedByName() {
	s.create(s.acme, "Zeta")
	s.create(s.acme, "Alpha")

	roles, err := s.store.List(s.acme)
	s.Require().NoError(err)
	s.Require().Len(roles, 2)
	s.Equal("Alpha", roles[0].Name)
}

func (s *InMemoryRoleSuite) TestReplacePermissions() {
	role := s.create(s.acme, "Support", "contacts.view")
	later := s.now.Add(time.Hour)

	s.Require().NoError(s.store.ReplacePermissions(s.acme, role.ID, []string{"companies.view"}, later))
	got, err := s.store.FindByID(s.acme, role.ID)
	s.Require().NoError(err)
	s.Equal([]string{"companies.view"}, got.Permissions)
	s.Equal(later, got.UpdatedAt)

	s.ErrorIs(s.store.ReplacePermissions(s.acme, id.NewRoleID(), nil, later), sentinel.ErrNotFound)
}

func (s *InMemoryRoleSuite) TestReturnsCopies() {
	role := s.create(s.acme, "Support", "contacts.view")

	got, err := s.store.FindByID(s.acme, role.ID)
	s.Require().NoError(err)
	got.Permissions[0] = "contacts.delete"

	again, err := s.store.FindByID(s.acme, role.ID)
	s.Require().NoError(err)
	s.Equal([]string{"contacts.view"}, again.Permissions)
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"clientiq/internal/authz/models"
	roleStore "clientiq/internal/authz/store/role"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	authmw "clientiq/pkg/platform/middleware/auth"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
)

type ServiceSuite struct {
	suite.Suite
	service *Service
	roles   *roleStore.InMemory
	acme    context.Context
	widgets context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.roles = roleStore.NewInMemory()
	s.service = New(s.roles, database.NewMemoryTx(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.acme = requestcontext.WithTime(tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: "acme"}), now)
	s.widgets = requestcontext.WithTime(tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: "widgets"}), now)
}

func (s *ServiceSuite) seed(ctx context.Context) map[string]*models.Role {
	roles, err := s.service.SeedDefaults(ctx)
	s.Require().NoError(err)
	return roles
}

func (s *ServiceSuite) TestSeedDefaultsIsIdempotent() {
	first := s.seed(s.acme)
	second := s.seed(s.acme)

	s.Len(first, 4)
	for name, role := range first {
		s.Equal(role.ID, second[name].ID)
	}
	roles, err := s.service.ListRoles(s.acme)
	s.Require().NoError(err)
	s.Len(roles, 4)
}

func (s *ServiceSuite) TestHasPermission() {
	roles := s.seed(s.acme)
	rep := &authmw.Principal{UserID: id.NewUserID(), RoleID: roles[models.RoleSalesRep].ID, IsActive: true}

	s.Run("granted by role", func() {
		ok, err := s.service.HasPermission(s.acme, rep, "contacts.create")
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("not in role", func() {
		ok, err := s.service.HasPermission(s.acme, rep, "contacts.delete")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("admin flag grants everything", func() {
		admin := &authmw.Principal{UserID: id.NewUserID(), IsAdmin: true, IsActive: true}
		ok, err := s.service.HasPermission(s.acme, admin, models.PermRolesManage)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("no role", func() {
		ok, err := s.service.HasPermission(s.acme, &authmw.Principal{IsActive: true}, "contacts.view")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("inactive principal", func() {
		inactive := *rep
		inactive.IsActive = false
		ok, err := s.service.HasPermission(s.acme, &inactive, "contacts.view")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ServiceSuite) TestRoleOfOtherTenantGrantsNothing() {
	acmeRoles := s.seed(s.acme)
	s.seed(s.widgets)
	principal := &authmw.Principal{RoleID: acmeRoles[models.RoleAdministrator].ID, IsActive: true}

	ok, err := s.service.HasPermission(s.widgets, principal, "contacts.view")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestCreateRole() {
	role, err := s.service.CreateRole(s.acme, CreateRoleCommand{Name: "Support", Permissions: []string{"contacts.view"}})
	s.Require().NoError(err)
	s.Equal([]string{"contacts.view"}, role.Permissions)

	_, err = s.service.CreateRole(s.acme, CreateRoleCommand{Name: "support"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.CreateRole(s.acme, CreateRoleCommand{Name: "Bad", Permissions: []string{"contacts.export"}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSetPermissions() {
	role, err := s.service.CreateRole(s.acme, CreateRoleCommand{Name: "Support"})
	s.Require().NoError(err)

	updated, err := s.service.SetPermissions(s.acme, role.ID, []string{"companies.view", "companies.view"})
	s.Require().NoError(err)
	s.Equal([]string{"companies.view"}, updated.Permissions)

	_, err = s.service.SetPermissions(s.acme, id.NewRoleID(), nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.SetPermissions(s.acme, role.ID, []string{"nope"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

type failingStore struct {
	mock.Mock
	RoleStore
}

func (f *failingStore) FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	args := f.Called(ctx, roleID)
	return nil, args.Error(1)
}

func (s *ServiceSuite) TestHasPermissionStoreFailure() {
	store := new(failingStore)
	store.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	svc := New(store, database.NewMemoryTx())

	_, err := svc.HasPermission(s.acme, &authmw.Principal{RoleID: id.NewRoleID(), IsActive: true}, "contacts.view")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	store.AssertExpectations(s.T())
}

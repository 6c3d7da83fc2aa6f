// Package seeder fills tenant schemas: default roles plus the first
// administrator for every new tenant, and an optional demo data set for
// local development.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	authmodels "clientiq/internal/auth/models"
	authservice "clientiq/internal/auth/service"
	authzmodels "clientiq/internal/authz/models"
	tenantmodels "clientiq/internal/tenant/models"
)

// RoleSeeder creates the default roles of the bound schema.
type RoleSeeder interface {
	SeedDefaults(ctx context.Context) (map[string]*authzmodels.Role, error)
}

// UserCreator adds users to the bound schema.
type UserCreator interface {
	CreateUser(ctx context.Context, cmd authservice.CreateUserCommand) (*authmodels.User, error)
}

// Seeder prepares a freshly provisioned tenant schema.
type Seeder struct {
	roles  RoleSeeder
	users  UserCreator
	logger *slog.Logger
}

func New(roles RoleSeeder, users UserCreator, logger *slog.Logger) *Seeder {
	return &Seeder{roles: roles, users: users, logger: logger}
}

// SeedTenant runs inside a context already bound to the tenant. Roles are
// seeded idempotently; the administrator, when given, gets the
// Administrator role and the admin flag.
func (s *Seeder) SeedTenant(ctx context.Context, admin *tenantmodels.InitialAdmin) error {
	roles, err := s.roles.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if admin == nil {
		return nil
	}
	adminRole, ok := roles[authzmodels.RoleAdministrator]
	if !ok {
		return errors.New("seed roles: administrator role missing")
	}

	user, err := s.users.CreateUser(ctx, authservice.CreateUserCommand{
		Email:     admin.Email,
		Password:  admin.Password,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
		RoleID:    adminRole.ID,
		Admin:     true,
	})
	if err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}
	s.logger.InfoContext(ctx, "tenant administrator created", "user_id", user.ID, "roles", len(roles))
	return nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clientiq/internal/authz/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	authmw "clientiq/pkg/platform/middleware/auth"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/requestcontext"
)

// RoleStore persists roles in the bound tenant schema.
// Error Contract: Find methods return sentinel.ErrNotFound, Create returns
// sentinel.ErrAlreadyUsed for a taken name.
type RoleStore interface {
	Create(ctx context.Context, role *models.Role) error
	FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	ReplacePermissions(ctx context.Context, roleID id.RoleID, codes []string, now time.Time) error
}

// Service answers permission checks and manages tenant roles. Every lookup
// runs against the schema bound to ctx, so a role of one tenant can never
// satisfy a check in another.
type Service struct {
	roles  RoleStore
	tx     database.TxRunner
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(roles RoleStore, tx database.TxRunner, opts ...Option) *Service {
	s := &Service{roles: roles, tx: tx, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasPermission reports whether p may perform code. Admin users hold every
// permission; users without a role hold none.
func (s *Service) HasPermission(ctx context.Context, p *authmw.Principal, code string) (bool, error) {
	if p == nil || !p.IsActive {
		return false, nil
	}
	if p.IsAdmin {
		return true, nil
	}
	if p.RoleID.IsNil() {
		return false, nil
	}
	role, err := s.roles.FindByID(ctx, p.RoleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role")
	}
	return role.Has(code), nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions() []models.Permission {
	return models.Catalog()
}

func (s *Service) ListRoles(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, wrapRoleErr(err, "failed to list roles")
	}
	return roles, nil
}

func (s *Service) GetRole(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, wrapRoleErr(err, "failed to load role")
	}
	return role, nil
}

type CreateRoleCommand struct {
	Name        string
	Description string
	Permissions []string
}

func (s *Service) CreateRole(ctx context.Context, cmd CreateRoleCommand) (*models.Role, error) {
	role, err := models.NewRole(id.NewRoleID(), cmd.Name, cmd.Description, cmd.Permissions, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.roles.Create(ctx, role)
	})
	if err != nil {
		return nil, wrapRoleErr(err, "failed to create role")
	}
	s.logger.InfoContext(ctx, "role created", "role_id", role.ID, "name", role.Name, "request_id", requestcontext.RequestID(ctx))
	return role, nil
}

// SetPermissions replaces the permission set of a role.
func (s *Service) SetPermissions(ctx context.Context, roleID id.RoleID, codes []string) (*models.Role, error) {
	var updated *models.Role
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		role, err := s.roles.FindByID(ctx, roleID)
		if err != nil {
			return err
		}
		if err := role.SetPermissions(codes, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.roles.ReplacePermissions(ctx, role.ID, role.Permissions, role.UpdatedAt); err != nil {
			return err
		}
		updated = role
		return nil
	})
	if err != nil {
		return nil, wrapRoleErr(err, "failed to update role permissions")
	}
	s.logger.InfoContext(ctx, "role permissions replaced",
		"role_id", roleID,
		"permissions", len(updated.Permissions),
		"request_id", requestcontext.RequestID(ctx),
	)
	return updated, nil
}

// RoleByName finds a role by its case-insensitive name.
func (s *Service) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err != nil {
		return nil, wrapRoleErr(err, "failed to load role")
	}
	return role, nil
}

// SeedDefaults creates any missing default role in the bound schema and
// returns every default role by name. It is safe to run repeatedly.
func (s *Service) SeedDefaults(ctx context.Context) (map[string]*models.Role, error) {
	out := make(map[string]*models.Role)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, def := range models.DefaultRoles() {
			existing, err := s.roles.FindByName(ctx, def.Name)
			if err == nil {
				out[def.Name] = existing
				continue
			}
			if !errors.Is(err, sentinel.ErrNotFound) {
				return err
			}
			role, err := models.NewRole(id.NewRoleID(), def.Name, def.Description, def.Permissions, requestcontext.Now(ctx))
			if err != nil {
				return err
			}
			if err := s.roles.Create(ctx, role); err != nil {
				return err
			}
			out[def.Name] = role
		}
		return nil
	})
	if err != nil {
		return nil, wrapRoleErr(err, "failed to seed default roles")
	}
	return out, nil
}

func wrapRoleErr(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "role not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "role name already in use")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

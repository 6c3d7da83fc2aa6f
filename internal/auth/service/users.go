package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"clientiq/internal/auth/device"
	"clientiq/internal/auth/models"
	authzmodels "clientiq/internal/authz/models"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	authmw "clientiq/pkg/platform/middleware/auth"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/validation"
)

const (
	DefaultPageSize = validation.DefaultPageSize
	MaxPageSize     = validation.MaxPageSize
)

// LoadPrincipal returns the caller as seen by authorization. A missing user
// is reported as sentinel.ErrNotFound so the auth middleware can answer 401.
func (s *Service) LoadPrincipal(ctx context.Context, userID id.UserID) (*authmw.Principal, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return &authmw.Principal{
		UserID:   user.ID,
		RoleID:   user.RoleID,
		Email:    user.Email,
		IsAdmin:  user.Admin,
		IsActive: user.Active,
	}, nil
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.GetUser(ctx, userID)
}

// ListSessions describes the caller's active refresh tokens, newest first.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID) (*models.SessionsResult, error) {
	tokens, err := s.refresh.ListActiveByUser(ctx, userID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	out := &models.SessionsResult{Sessions: make([]models.SessionSummary, 0, len(tokens))}
	for _, t := range tokens {
		out.Sessions = append(out.Sessions, models.SessionSummary{
			SessionID: t.JTI,
			Device:    device.Label(t.UserAgent),
			ClientIP:  t.ClientIP,
			CreatedAt: t.IssuedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}
	return out, nil
}

// ClampPage normalizes list paging: limit defaults to DefaultPageSize and is
// capped at MaxPageSize, negative offsets become zero.
func ClampPage(limit, offset int) (int, int) {
	return validation.ClampPage(limit, offset)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	limit, offset = ClampPage(limit, offset)
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, translate(err, userErrorMappings, "failed to list users")
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user ID required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, userErrorMappings, "failed to load user")
	}
	return user, nil
}

type CreateUserCommand struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleID    id.RoleID
	Admin     bool
}

// CreateUser adds a user to the bound tenant. The role, when given, must
// exist in the same schema. A caller who is not an administrator can neither
// create administrators nor hand out a role granting more than their own.
func (s *Service) CreateUser(ctx context.Context, cmd CreateUserCommand) (*models.User, error) {
	role, err := s.checkRole(ctx, cmd.RoleID)
	if err != nil {
		return nil, err
	}
	actor, err := s.loadActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkGrant(ctx, actor, cmd.Admin, role); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewUser(id.NewUserID(), cmd.Email, hash, cmd.FirstName, cmd.LastName, cmd.RoleID, cmd.Admin, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, translate(err, userErrorMappings, "failed to create user")
	}

	s.metrics.IncrementUsersCreated()
	s.logAudit(ctx, eventUserCreated, "user_id", user.ID.String(), "is_admin", user.Admin)
	return user, nil
}

// UpdateUserCommand is a partial update; nil fields are unchanged.
type UpdateUserCommand struct {
	FirstName *string
	LastName  *string
	RoleID    *id.RoleID
	Active    *bool
	Admin     *bool
	Password  *string
}

// UpdateUser applies cmd. Deactivating a user or changing their password
// revokes every refresh token they hold. Only administrators may change the
// admin flag or touch an administrator's account, and nobody may deactivate
// or demote themselves.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, cmd UpdateUserCommand) (*models.User, error) {
	var role *authzmodels.Role
	if cmd.RoleID != nil {
		var err error
		if role, err = s.checkRole(ctx, *cmd.RoleID); err != nil {
			return nil, err
		}
	}
	actor, err := s.loadActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.ID == userID {
		if cmd.Active != nil && !*cmd.Active {
			return nil, dErrors.New(dErrors.CodeConflict, "you cannot deactivate your own account")
		}
		if cmd.Admin != nil && !*cmd.Admin && actor.Admin {
			return nil, dErrors.New(dErrors.CodeConflict, "you cannot revoke your own administrator access")
		}
	}
	var hash string
	if cmd.Password != nil {
		var err error
		if hash, err = s.hashPassword(*cmd.Password); err != nil {
			return nil, err
		}
	}

	var (
		user         *models.User
		revokeTokens bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if actor != nil && !actor.Admin && user.Admin {
			return errAdminOnly
		}
		adminChange := cmd.Admin != nil && *cmd.Admin != user.Admin
		if err := s.checkGrant(ctx, actor, adminChange, role); err != nil {
			return err
		}
		if cmd.FirstName != nil {
			user.FirstName = *cmd.FirstName
		}
		if cmd.LastName != nil {
			user.LastName = *cmd.LastName
		}
		if cmd.RoleID != nil {
			user.RoleID = *cmd.RoleID
		}
		if cmd.Admin != nil {
			user.Admin = *cmd.Admin
		}
		if cmd.Active != nil {
			revokeTokens = user.Active && !*cmd.Active
			user.Active = *cmd.Active
		}
		if hash != "" {
			user.PasswordHash = hash
			revokeTokens = true
		}
		user.UpdatedAt = requestcontext.Now(ctx)
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return nil, translate(err, userErrorMappings, "failed to update user")
	}

	if revokeTokens {
		if _, err := s.LogoutAll(ctx, userID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke tokens after user update", "user_id", userID.String(), "error", err)
		}
	}
	s.logAudit(ctx, eventUserUpdated, "user_id", userID.String(), "is_active", user.Active, "is_admin", user.Admin)
	return user, nil
}

var (
	errAdminOnly      = dErrors.New(dErrors.CodePermissionDenied, "only administrators can manage administrator access")
	errRoleAboveActor = dErrors.New(dErrors.CodePermissionDenied, "cannot assign a role with permissions you do not hold")
)

func (s *Service) checkRole(ctx context.Context, roleID id.RoleID) (*authzmodels.Role, error) {
	if roleID.IsNil() {
		return nil, nil
	}
	role, err := s.roles.GetRole(ctx, roleID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "role does not exist")
		}
		return nil, err
	}
	return role, nil
}

// loadActor returns the authenticated caller, or nil when the context carries
// none (the admin CLI and the seeder act as operators).
func (s *Service) loadActor(ctx context.Context) (*models.User, error) {
	actorID := requestcontext.UserID(ctx)
	if actorID.IsNil() {
		return nil, nil
	}
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodePermissionDenied, "permission denied")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caller")
	}
	return actor, nil
}

// checkGrant refuses changes a non-administrator could use to gain
// permissions: toggling the admin flag, or assigning a role holding a
// permission the caller's own role lacks.
func (s *Service) checkGrant(ctx context.Context, actor *models.User, adminChange bool, role *authzmodels.Role) error {
	if actor == nil || actor.Admin {
		return nil
	}
	if adminChange {
		return errAdminOnly
	}
	if role == nil {
		return nil
	}
	var held *authzmodels.Role
	if !actor.RoleID.IsNil() {
		var err error
		if held, err = s.roles.GetRole(ctx, actor.RoleID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
	}
	for _, code := range role.Permissions {
		if !held.Has(code) {
			return errRoleAboveActor
		}
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return string(hash), nil
}

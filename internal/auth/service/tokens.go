package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"clientiq/internal/auth/models"
	jwttoken "clientiq/internal/jwt_token"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
)

// tokenPair is a freshly signed access and refresh token plus the row that
// will back the refresh token.
type tokenPair struct {
	access  *jwttoken.IssuedToken
	refresh *jwttoken.IssuedToken
	record  *models.RefreshToken
}

func (p *tokenPair) result(user *models.User, accessTTL time.Duration) *models.LoginResult {
	return &models.LoginResult{
		AccessToken:  p.access.Token,
		RefreshToken: p.refresh.Token,
		ExpiresIn:    accessTTL,
		User:         user,
	}
}

func (s *Service) issuePair(ctx context.Context, user *models.User, scope tenancy.Scope) (*tokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(ctx, user.ID, scope.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, user.ID, scope.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
	}
	return &tokenPair{
		access:  access,
		refresh: refresh,
		record: &models.RefreshToken{
			JTI:       refresh.JTI,
			UserID:    user.ID,
			IssuedAt:  refresh.IssuedAt,
			ExpiresAt: refresh.ExpiresAt,
			UserAgent: requestcontext.UserAgent(ctx),
			ClientIP:  requestcontext.ClientIP(ctx),
		},
	}, nil
}

// Refresh exchanges a refresh token for a new pair and retires the old one.
//
// The old token must be unexpired, issued for the bound tenant, absent from
// the blacklist and unrevoked in its schema. Rotation is a conditional
// update, so replaying a token (even concurrently) yields token_revoked for
// every caller but one.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ *models.LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.refresh")
	defer func() {
		span.End(err)
		outcome := "success"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		s.metrics.ObserveRefresh(outcome)
	}()

	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, s.handleRefreshError(ctx, err)
	}
	userID, err := s.claimsUser(scope, claims)
	if err != nil {
		return nil, s.handleRefreshError(ctx, err, "jti", claims.ID)
	}
	span.SetAttributes(attribute.String("jti", claims.ID))

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, s.handleRefreshError(ctx, err, "jti", claims.ID)
	}
	if revoked {
		return nil, s.handleRefreshError(ctx, sentinel.ErrAlreadyUsed, "jti", claims.ID, "source", "blacklist")
	}

	var (
		pair    *tokenPair
		user    *models.User
		expires time.Time
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		record, err := s.refresh.Find(ctx, claims.ID)
		if err != nil {
			return err
		}
		if record.UserID != userID {
			return dErrors.New(dErrors.CodeTokenInvalid, "invalid refresh token")
		}
		if record.IsRevoked() {
			return sentinel.ErrAlreadyUsed
		}

		user, err = s.users.FindByID(ctx, userID)
		if errors.Is(err, sentinel.ErrNotFound) || (err == nil && !user.Active) {
			return dErrors.New(dErrors.CodeTokenInvalid, "invalid refresh token")
		}
		if err != nil {
			return err
		}

		pair, err = s.issuePair(ctx, user, scope)
		if err != nil {
			return err
		}
		expires = record.ExpiresAt
		return s.refresh.Rotate(ctx, record.JTI, pair.record, now)
	})
	if err != nil {
		return nil, s.handleRefreshError(ctx, err, "jti", claims.ID, "user_id", userID.String())
	}

	s.blacklistJTI(ctx, claims.ID, expires)
	s.logAudit(ctx, eventTokenRefreshed,
		"user_id", userID.String(),
		"old_jti", claims.ID,
		"new_jti", pair.record.JTI,
	)
	return pair.result(user, s.tokens.AccessTokenTTL()), nil
}

// Logout revokes a refresh token. Expired tokens are accepted as long as the
// signature verifies, and repeating the call is harmless.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.logout")
	defer func() { span.End(err) }()

	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	claims, err := s.tokens.ParseTokenSkipClaimsValidation(refreshToken)
	if err != nil {
		s.authFailure(ctx, "logout_invalid_token", dErrors.CodeOf(err))
		return err
	}
	userID, err := s.claimsUser(scope, claims)
	if err != nil {
		s.authFailure(ctx, "logout_foreign_token", dErrors.CodeOf(err), "jti", claims.ID)
		return err
	}

	expires := requestcontext.Now(ctx).Add(s.tokens.RefreshTokenTTL())
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, expires.Sub(requestcontext.Now(ctx))); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}

	var revoked bool
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		revoked, err = s.refresh.Revoke(ctx, claims.ID, requestcontext.Now(ctx))
		return err
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}

	s.logAudit(ctx, eventLoggedOut, "user_id", userID.String(), "jti", claims.ID, "was_active", revoked)
	return nil
}

// LogoutAll revokes every active refresh token of userID and returns how many
// there were.
func (s *Service) LogoutAll(ctx context.Context, userID id.UserID) (int, error) {
	var revoked []*models.RefreshToken
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		revoked, err = s.refresh.RevokeAllForUser(ctx, userID, requestcontext.Now(ctx))
		return err
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke sessions")
	}
	for _, token := range revoked {
		s.blacklistJTI(ctx, token.JTI, token.ExpiresAt)
	}
	s.logAudit(ctx, eventLoggedOutAll, "user_id", userID.String(), "revoked_count", len(revoked))
	return len(revoked), nil
}

// claimsUser checks the token belongs to the bound tenant and returns its user.
func (s *Service) claimsUser(scope tenancy.Scope, claims *jwttoken.Claims) (id.UserID, error) {
	if claims.TenantID != scope.TenantID.String() {
		return id.UserID{}, dErrors.New(dErrors.CodeTokenInvalid, "invalid refresh token")
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeTokenInvalid, "invalid refresh token")
	}
	return userID, nil
}

// blacklistJTI is best effort: the revoked row already blocks reuse, the
// blacklist only spares the database lookup.
func (s *Service) blacklistJTI(ctx context.Context, jti string, expiresAt time.Time) {
	if err := s.blacklist.Revoke(ctx, jti, expiresAt.Sub(requestcontext.Now(ctx))); err != nil {
		s.logger.ErrorContext(ctx, "failed to blacklist refresh token", "jti", jti, "error", err)
	}
}

package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"clientiq/internal/auth/models"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
)

// Login verifies credentials against the bound tenant and issues a token
// pair. Unknown email, wrong password and inactive user are
// indistinguishable: same error, same bcrypt work.
func (s *Service) Login(ctx context.Context, email, password string) (_ *models.LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer func() { span.End(err) }()

	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	email = models.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.authFailure(ctx, "user_lookup_failed", dErrors.CodeInternal, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "login failed")
	}

	if user == nil || !user.Active {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		reason := "unknown_user"
		if user != nil {
			reason = "inactive_user"
		}
		return nil, s.loginFailure(ctx, reason)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, s.loginFailure(ctx, "bad_password", "user_id", user.ID.String())
	}

	var pair *tokenPair
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		issued, err := s.issuePair(ctx, user, scope)
		if err != nil {
			return err
		}
		if err := s.refresh.Create(ctx, issued.record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store refresh token")
		}
		if err := s.users.RecordLogin(ctx, user.ID, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login")
		}
		pair = issued
		return nil
	})
	if err != nil {
		s.metrics.ObserveLogin("error")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	user.LastLoginAt = &now
	s.metrics.ObserveLogin("success")
	s.logAudit(ctx, eventLoginSucceeded, "user_id", user.ID.String(), "jti", pair.record.JTI)
	return pair.result(user, s.tokens.AccessTokenTTL()), nil
}

func (s *Service) loginFailure(ctx context.Context, reason string, attrs ...any) error {
	s.metrics.ObserveLogin("failure")
	s.authFailure(ctx, reason, dErrors.CodeInvalidCredentials, attrs...)
	return invalidCredentials()
}

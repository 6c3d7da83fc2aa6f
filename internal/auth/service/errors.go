package service

import (
	"context"
	"errors"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/sentinel"
)

// errorMapping translates a store sentinel into a client-facing domain error.
type errorMapping struct {
	sentinel  error
	code      dErrors.Code
	message   string
	logReason string
}

// refreshErrorMappings apply to refresh token rows. First match wins.
var refreshErrorMappings = []errorMapping{
	{sentinel.ErrAlreadyUsed, dErrors.CodeTokenRevoked, "refresh token has been revoked", "already_used"},
	{sentinel.ErrExpired, dErrors.CodeTokenExpired, "refresh token expired", "expired"},
	{sentinel.ErrNotFound, dErrors.CodeTokenInvalid, "invalid refresh token", "not_found"},
}

var userErrorMappings = []errorMapping{
	{sentinel.ErrNotFound, dErrors.CodeNotFound, "user not found", "not_found"},
	{sentinel.ErrAlreadyUsed, dErrors.CodeConflict, "email already in use", "duplicate_email"},
}

func translate(err error, mappings []errorMapping, action string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	for _, m := range mappings {
		if errors.Is(err, m.sentinel) {
			return dErrors.Wrap(err, m.code, m.message)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

// handleRefreshError translates and records a failed refresh.
func (s *Service) handleRefreshError(ctx context.Context, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	translated := translate(err, refreshErrorMappings, "refresh failed")
	reason := string(dErrors.CodeOf(translated))
	for _, m := range refreshErrorMappings {
		if errors.Is(err, m.sentinel) {
			reason = m.logReason
			break
		}
	}
	s.authFailure(ctx, reason, dErrors.CodeOf(translated), attrs...)
	return translated
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password")
}

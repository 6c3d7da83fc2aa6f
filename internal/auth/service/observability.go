package service

import (
	"context"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
)

// Audit events are structured log lines tagged log_type=audit.
const (
	eventLoginSucceeded = "login_succeeded"
	eventAuthFailed     = "auth_failed"
	eventTokenRefreshed = "token_refreshed"
	eventLoggedOut      = "logged_out"
	eventLoggedOutAll   = "logged_out_all"
	eventUserCreated    = "user_created"
	eventUserUpdated    = "user_updated"
)

func withRequestAttrs(ctx context.Context, attributes []any) []any {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if scope, ok := tenancy.FromContext(ctx); ok && !scope.IsPlatform() {
		attributes = append(attributes, "tenant_id", scope.TenantID.String(), "schema", scope.Schema)
	}
	return attributes
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	args := append(withRequestAttrs(ctx, attributes), "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

// authFailure logs a rejected authentication. Internal failures are logged
// at error level; everything else is an expected client mistake.
func (s *Service) authFailure(ctx context.Context, reason string, code dErrors.Code, attributes ...any) {
	args := append(withRequestAttrs(ctx, attributes), "event", eventAuthFailed, "reason", reason, "log_type", "audit")
	if code == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, eventAuthFailed, args...)
	} else {
		s.logger.WarnContext(ctx, eventAuthFailed, args...)
	}
	s.metrics.IncrementAuthFailures(string(code))
}

// Package middleware enforces permission codes on routes that already
// passed auth.RequireAuth.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	authmw "clientiq/pkg/platform/middleware/auth"
	"clientiq/pkg/requestcontext"
)

// PermissionChecker resolves a permission for the caller inside the bound
// tenant schema.
type PermissionChecker interface {
	HasPermission(ctx context.Context, p *authmw.Principal, code string) (bool, error)
}

// Guard builds the middleware protecting a route with one permission code.
type Guard func(code string) func(http.Handler) http.Handler

// NewGuard returns the Guard backed by checker.
func NewGuard(checker PermissionChecker, logger *slog.Logger) Guard {
	return func(code string) func(http.Handler) http.Handler {
		return RequirePermission(checker, code, logger)
	}
}

// AllowAll is a Guard that performs no check.
func AllowAll(string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

// RequirePermission rejects callers lacking code with 403 permission_denied.
// It must run after RequireAuth; a missing principal is 401.
func RequirePermission(checker PermissionChecker, code string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := authmw.GetPrincipal(ctx)
			if !ok {
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			allowed, err := checker.HasPermission(ctx, principal, code)
			if err != nil {
				logger.ErrorContext(ctx, "permission check failed",
					"error", err,
					"permission", code,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(ctx, w, err)
				return
			}
			if !allowed {
				logger.WarnContext(ctx, "forbidden - missing permission",
					"permission", code,
					"user_id", principal.UserID,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodePermissionDenied, "permission denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

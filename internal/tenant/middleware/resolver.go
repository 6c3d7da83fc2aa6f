// Package middleware binds the tenant named by the Host header.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
	"clientiq/pkg/tenancy"
)

// Resolver maps a Host header to a scope.
type Resolver interface {
	Resolve(ctx context.Context, host string) (tenancy.Scope, error)
}

// ResolveTenant binds the resolved scope before any handler or database
// access runs. Unknown hosts get the same 404 body as an unknown resource.
func ResolveTenant(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope, err := resolver.Resolve(ctx, r.Host)
			if err != nil {
				logger.InfoContext(ctx, "tenant resolution failed",
					"host", r.Host,
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(ctx, w, err)
				return
			}

			request.NoteScope(ctx, scope)
			next.ServeHTTP(w, r.WithContext(tenancy.WithScope(ctx, scope)))
		})
	}
}

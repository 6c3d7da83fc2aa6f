// Package admin guards the platform administration surface.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
)

const maxActorLength = 128

type contextKeyActor struct{}

// ActorID returns the operator named in X-Admin-Actor-ID, for audit lines.
// Requests that did not pass RequireAdminToken have none.
func ActorID(ctx context.Context) string {
	actor, _ := ctx.Value(contextKeyActor{}).(string)
	return actor
}

// RequireAdminToken checks X-Admin-Token in constant time. An empty expected
// token disables the surface entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			if actor := strings.TrimSpace(r.Header.Get("X-Admin-Actor-ID")); actor != "" {
				if len(actor) > maxActorLength {
					actor = actor[:maxActorLength]
				}
				ctx = context.WithValue(ctx, contextKeyActor{}, actor)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PlatformOnly hides the wrapped routes on tenant hosts. The answer is the
// same not_found a missing route would give.
func PlatformOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s, ok := tenancy.FromContext(ctx); !ok || !s.IsPlatform() {
			httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeNotFound, "not found"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

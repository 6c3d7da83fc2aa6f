// Package requesttime provides middleware that pins a single "now" per request.
// Every timestamp written during the request (token iat/exp, row timestamps,
// response envelope meta) uses the same instant.
package requesttime

import (
	"context"
	"net/http"
	"time"

	"clientiq/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
// A time already present in the context (tests, replays) is kept.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := requestcontext.PinnedTime(ctx); !ok {
			ctx = requestcontext.WithTime(ctx, time.Now())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Fixed returns middleware that pins every request to t.
func Fixed(t time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), t)))
		})
	}
}

// Now retrieves the request-scoped time from context.
func Now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx)
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
)

// JWTValidator validates an access token. Implementations return domain
// errors coded token_expired or token_invalid.
type JWTValidator interface {
	ValidateAccessToken(tokenString string) (*JWTClaims, error)
}

// PrincipalLoader loads the caller from the bound tenant schema. It returns
// sentinel.ErrNotFound for missing users.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID id.UserID) (*Principal, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID   string
	TenantID string
	JTI      string
}

// Principal is the authenticated user as seen by authorization checks.
type Principal struct {
	UserID   id.UserID
	TenantID id.TenantID
	RoleID   id.RoleID
	Email    string
	IsAdmin  bool
	IsActive bool
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns the principal set by RequireAuth.
func GetPrincipal(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// parsedClaims holds the typed IDs parsed from JWT claims.
type parsedClaims struct {
	UserID   id.UserID
	TenantID id.TenantID
}

func parseClaims(claims *JWTClaims) (*parsedClaims, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id: %w", err)
	}
	tenantID, err := id.ParseTenantID(claims.TenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant_id: %w", err)
	}
	return &parsedClaims{UserID: userID, TenantID: tenantID}, nil
}

// RequireAuth authenticates the bearer access token and binds the caller.
//
// Checks run in a fixed order: token validity (401), token tenant against the
// resolved tenant (403, the same body as any other permission failure), then
// the user row inside the bound schema (401 when missing or inactive). The
// tenant comparison happens before any tenant data is read.
func RequireAuth(validator JWTValidator, loader PrincipalLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token", "error", err, "request_id", requestID)
				if !dErrors.HasCode(err, dErrors.CodeTokenExpired) {
					err = dErrors.New(dErrors.CodeTokenInvalid, "token is invalid")
				}
				httputil.WriteError(ctx, w, err)
				return
			}

			parsed, err := parseClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims", "error", err, "request_id", requestID)
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeTokenInvalid, "token is invalid"))
				return
			}

			scope, err := tenancy.Tenant(ctx)
			if err != nil || scope.TenantID != parsed.TenantID {
				logger.WarnContext(ctx, "forbidden - token tenant does not match host",
					"token_tenant_id", parsed.TenantID,
					"request_id", requestID,
				)
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodePermissionDenied, "tenant mismatch"))
				return
			}

			principal, err := loader.LoadPrincipal(ctx, parsed.UserID)
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				logger.WarnContext(ctx, "unauthorized access - user not found", "user_id", parsed.UserID, "request_id", requestID)
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeTokenInvalid, "token is invalid"))
				return
			case err != nil:
				logger.ErrorContext(ctx, "failed to load principal", "error", err, "request_id", requestID)
				httputil.WriteError(ctx, w, err)
				return
			case !principal.IsActive:
				logger.WarnContext(ctx, "unauthorized access - user inactive", "user_id", parsed.UserID, "request_id", requestID)
				httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeTokenInvalid, "token is invalid"))
				return
			}
			principal.TenantID = parsed.TenantID

			ctx = requestcontext.WithUserID(ctx, parsed.UserID)
			ctx = requestcontext.WithTenantID(ctx, parsed.TenantID)
			ctx = WithPrincipal(ctx, principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

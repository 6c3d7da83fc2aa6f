// Package httptransport composes the HTTP surface: the shared middleware
// chain, the platform admin routes and the tenant API.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authhandler "clientiq/internal/auth/handler"
	authzhandler "clientiq/internal/authz/handler"
	authzmw "clientiq/internal/authz/middleware"
	crmhandler "clientiq/internal/crm/handler"
	"clientiq/internal/platform/health"
	tenanthandler "clientiq/internal/tenant/handler"
	tenantmw "clientiq/internal/tenant/middleware"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	"clientiq/pkg/platform/middleware/admin"
	authmw "clientiq/pkg/platform/middleware/auth"
	"clientiq/pkg/platform/middleware/metadata"
	request "clientiq/pkg/platform/middleware/request"
	"clientiq/pkg/platform/middleware/requesttime"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxBodyBytes   = 1 << 20

	// APIPrefix is where every tenant and platform endpoint lives.
	APIPrefix = "/api/v1"
)

// Deps carries everything NewRouter mounts. SchemaBinder and Metrics are
// optional: memory deployments have no schema to bind.
type Deps struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Metadata       *metadata.Config
	Latency        *request.Metrics
	MetricsHandler http.Handler
	// Clock pins the request time; nil stamps each request with the wall clock.
	Clock func(http.Handler) http.Handler

	Resolver     tenantmw.Resolver
	SchemaBinder func(http.Handler) http.Handler
	AdminToken   string

	Tokens     authmw.JWTValidator
	Principals authmw.PrincipalLoader
	Guard      authzmw.Guard
	LoginLimit func(http.Handler) http.Handler

	Health  *health.Handler
	Tenants *tenanthandler.Handler
	Auth    *authhandler.Handler
	Authz   *authzhandler.Handler
	CRM     *crmhandler.Handler
}

// NewRouter wires every endpoint behind one middleware chain. The tenant is
// resolved before anything touches a store, and the schema is bound right
// after it.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	clock := d.Clock
	if clock == nil {
		clock = requesttime.Middleware
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(d.Metadata).Handler)
	r.Use(request.Logger(d.Logger))
	r.Use(clock)
	r.Use(request.Timeout(timeout))
	r.Use(request.ContentTypeJSON)
	r.Use(request.BodyLimit(maxBody))
	r.Use(request.LatencyMiddleware(d.Latency))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(tenantmw.ResolveTenant(d.Resolver, d.Logger))
		if d.SchemaBinder != nil {
			r.Use(d.SchemaBinder)
		}

		if d.Tenants != nil {
			r.Group(func(r chi.Router) {
				r.Use(admin.PlatformOnly)
				r.Use(admin.RequireAdminToken(d.AdminToken, d.Logger))
				d.Tenants.Register(r)
			})
		}

		r.Group(func(r chi.Router) {
			if d.LoginLimit != nil {
				r.Use(d.LoginLimit)
			}
			d.Auth.RegisterPublic(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(d.Tokens, d.Principals, d.Logger))
			d.Auth.Register(r, d.Guard)
			d.Authz.Register(r, d.Guard)
			d.CRM.Register(r, d.Guard)
		})
	})

	return r
}

// notFound answers unknown routes with the same envelope as an unknown
// resource.
func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(r.Context(), w, dErrors.New(dErrors.CodeNotFound, "not found"))
}

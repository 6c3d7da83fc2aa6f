// Package app is the composition root shared by the server and the admin
// CLI. It picks the storage backend from configuration and wires every
// service on top of it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authadapters "clientiq/internal/auth/adapters"
	authhandler "clientiq/internal/auth/handler"
	authservice "clientiq/internal/auth/service"
	refreshStore "clientiq/internal/auth/store/refresh-token"
	"clientiq/internal/auth/store/revocation"
	userStore "clientiq/internal/auth/store/user"
	authcleanup "clientiq/internal/auth/workers/cleanup"
	authzhandler "clientiq/internal/authz/handler"
	authzmw "clientiq/internal/authz/middleware"
	authzservice "clientiq/internal/authz/service"
	roleStore "clientiq/internal/authz/store/role"
	crmhandler "clientiq/internal/crm/handler"
	crmservice "clientiq/internal/crm/service"
	crmstore "clientiq/internal/crm/store"
	jwttoken "clientiq/internal/jwt_token"
	"clientiq/internal/platform/config"
	"clientiq/internal/platform/database"
	"clientiq/internal/platform/health"
	"clientiq/internal/platform/metrics"
	redisclient "clientiq/internal/platform/redis"
	"clientiq/internal/platform/tracer"
	"clientiq/internal/ratelimit/checker"
	ratelimitmetrics "clientiq/internal/ratelimit/metrics"
	ratelimitmw "clientiq/internal/ratelimit/middleware"
	ratelimitmodels "clientiq/internal/ratelimit/models"
	"clientiq/internal/ratelimit/store/bucket"
	bucketcleanup "clientiq/internal/ratelimit/workers/cleanup"
	"clientiq/internal/seeder"
	tenanthandler "clientiq/internal/tenant/handler"
	"clientiq/internal/tenant/provision"
	tenantservice "clientiq/internal/tenant/service"
	tenantStore "clientiq/internal/tenant/store/tenant"
	httptransport "clientiq/internal/transport/http"
	"clientiq/migrations"
	"clientiq/pkg/platform/middleware/metadata"
	request "clientiq/pkg/platform/middleware/request"
)

// refreshTokens is what both the auth service and the cleanup worker need
// from the refresh token store.
type refreshTokens interface {
	authservice.RefreshTokenStore
	authcleanup.RefreshTokenStore
}

// backend is the storage a deployment runs on.
type backend struct {
	name        string
	tenants     tenantservice.TenantStore
	users       authservice.UserStore
	refresh     refreshTokens
	roles       authzservice.RoleStore
	crm         crmservice.Store
	tx          database.TxRunner
	binder      database.Binder
	provisioner tenantservice.Provisioner
	schemaMW    func(http.Handler) http.Handler
}

// App holds the wired services.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Tenants *tenantservice.Service
	Auth    *authservice.Service
	Authz   *authzservice.Service
	CRM     *crmservice.Service
	Binder  database.Binder

	backend   backend
	metrics   *metrics.Metrics
	rlMetrics *ratelimitmetrics.Metrics
	reg       prometheus.Registerer
	gatherer  prometheus.Gatherer
	tokens    *jwttoken.JWTService
	limiter   *checker.Service
	buckets   *bucket.InMemoryBucketStore
	blacklist revocation.Blacklist
	health    *health.Handler
	pool      *database.Pool
	redis     *redisclient.Client
}

// Option customizes New.
type Option func(*App)

// WithRegistry registers metrics on reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.reg = reg
		a.gatherer = reg
	}
}

// New connects the configured backends and wires every service. An empty
// database URL selects the in-memory stores.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		reg:      prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(a)
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.metrics = metrics.NewWithRegistry(a.reg)
	a.rlMetrics = ratelimitmetrics.NewWithRegistry(a.reg)

	if cfg.Database.URL != "" {
		if err := a.openPostgres(ctx); err != nil {
			return nil, err
		}
	} else {
		a.backend = memoryBackend()
	}
	a.health = health.New(cfg.Environment, a.backend.name)
	if a.pool != nil {
		a.health.RegisterCheck("postgres", a.pool.Health)
	}

	a.redis, err = redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if a.redis != nil {
		a.blacklist = revocation.NewRedis(a.redis.Client)
		a.health.RegisterCheck("redis", a.redis.Health)
		if err := a.reg.Register(a.redis.Collector()); err != nil {
			return nil, fmt.Errorf("register redis metrics: %w", err)
		}
	} else {
		a.blacklist = revocation.NewInMemory()
	}

	a.tokens = jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	b := a.backend
	a.Binder = b.binder
	a.Authz = authzservice.New(b.roles, b.tx, authzservice.WithLogger(logger))
	a.Auth, err = authservice.New(b.users, b.refresh, a.blacklist, a.tokens, a.Authz, b.tx,
		authservice.WithLogger(logger),
		authservice.WithMetrics(a.metrics),
		authservice.WithTracer(tracer.New("auth")),
		authservice.WithBcryptCost(cfg.Auth.BcryptCost),
	)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	a.Tenants = tenantservice.New(b.tenants, b.provisioner, b.binder, b.tx,
		tenantservice.WithLogger(logger),
		tenantservice.WithMetrics(a.metrics),
		tenantservice.WithTracer(tracer.New("tenant")),
		tenantservice.WithSeeder(seeder.New(a.Authz, a.Auth, logger)),
		tenantservice.WithHosts(cfg.Tenancy.BaseDomain, cfg.Tenancy.PlatformHostSet()),
	)
	a.CRM = crmservice.New(b.crm, b.users, b.tx,
		crmservice.WithLogger(logger),
		crmservice.WithMetrics(a.metrics),
	)

	a.buckets = bucket.NewInMemoryBucketStore()
	a.limiter, err = checker.New(a.buckets,
		ratelimitmodels.Limit{PerMinute: cfg.RateLimit.IPPerMinute, Burst: cfg.RateLimit.IPBurst},
		ratelimitmodels.Limit{PerMinute: cfg.RateLimit.LoginPerMinute, Burst: cfg.RateLimit.LoginBurst},
		checker.WithLogger(logger),
		checker.WithMetrics(a.rlMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return a, nil
}

func memoryBackend() backend {
	return backend{
		name:        "memory",
		tenants:     tenantStore.NewInMemory(),
		users:       userStore.New(),
		refresh:     refreshStore.New(),
		roles:       roleStore.NewInMemory(),
		crm:         crmstore.NewInMemory(),
		tx:          database.NewMemoryTx(),
		binder:      database.ScopeBinder{},
		provisioner: provision.Noop{},
	}
}

func (a *App) openPostgres(ctx context.Context) error {
	dbCfg := a.Config.Database
	pool, err := database.New(ctx, dbCfg)
	if err != nil {
		return err
	}
	a.pool = pool
	if err := a.reg.Register(pool.Collector()); err != nil {
		return fmt.Errorf("register database metrics: %w", err)
	}

	db := pool.DB()
	if err := migrations.ApplyPublic(ctx, db); err != nil {
		return fmt.Errorf("migrate public schema: %w", err)
	}
	schemas := database.NewRouter(db, a.Logger)
	a.backend = backend{
		name:        "postgres",
		tenants:     tenantStore.NewPostgres(db),
		users:       userStore.NewPostgres(),
		refresh:     refreshStore.NewPostgres(),
		roles:       roleStore.NewPostgres(),
		crm:         crmstore.NewPostgres(),
		tx:          database.NewTx(db, dbCfg.TxTimeout),
		binder:      schemas,
		provisioner: provision.NewPostgres(db, schemas),
		schemaMW:    schemas.Middleware,
	}
	return nil
}

// Handler builds the HTTP surface.
func (a *App) Handler() (http.Handler, error) {
	proxies, err := metadata.ParseTrustedProxies(a.Config.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	return httptransport.NewRouter(httptransport.Deps{
		Logger:         a.Logger,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Metadata:       &metadata.Config{TrustedProxies: proxies},
		Latency:        request.NewMetrics(a.reg),
		MetricsHandler: promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}),
		Resolver:       a.Tenants,
		SchemaBinder:   a.backend.schemaMW,
		AdminToken:     a.Config.Server.AdminToken,
		Tokens:         jwttoken.NewJWTServiceAdapter(a.tokens),
		Principals:     a.Auth,
		Guard:          authzmw.NewGuard(a.Authz, a.Logger),
		LoginLimit:     ratelimitmw.New(a.limiter, a.Logger).RateLimit(),
		Health:         a.health,
		Tenants:        tenanthandler.New(a.Tenants, a.Logger),
		Auth:           authhandler.New(a.Auth, authadapters.NewRateLimitAdapter(a.limiter), a.Logger),
		Authz:          authzhandler.New(a.Authz, a.Logger),
		CRM:            crmhandler.New(a.CRM, a.Logger),
	}), nil
}

// Workers returns the background loops the server runs next to HTTP. Each
// returns nil once ctx is done.
func (a *App) Workers() ([]func(context.Context) error, error) {
	refreshCleanup, err := authcleanup.New(a.Tenants, a.Binder, a.backend.refresh,
		authcleanup.WithCleanupInterval(a.Config.Cleanup.Interval),
		authcleanup.WithCleanupLogger(a.Logger),
		authcleanup.WithCleanupMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	buckets := bucketcleanup.New(a.buckets,
		bucketcleanup.WithLogger(a.Logger),
		bucketcleanup.WithInterval(a.Config.Cleanup.Interval),
		bucketcleanup.WithIdle(a.Config.Cleanup.BucketIdle),
		bucketcleanup.WithMetrics(a.rlMetrics),
	)

	workers := []func(context.Context) error{refreshCleanup.Start, buckets.Start}
	if mem, ok := a.blacklist.(*revocation.InMemoryBlacklist); ok {
		workers = append(workers, func(ctx context.Context) error {
			return every(ctx, a.Config.Cleanup.Interval, func() {
				if n := mem.Sweep(); n > 0 {
					a.Logger.DebugContext(ctx, "blacklist sweep completed", "removed", n)
				}
			})
		})
	}
	return workers, nil
}

// SeedDemo creates the demo tenants and their sample records.
func (a *App) SeedDemo(ctx context.Context) error {
	return seeder.NewDemo(a.Tenants, a.Binder, a.CRM, a.Logger).Seed(ctx)
}

// Storage names the active backend.
func (a *App) Storage() string { return a.backend.name }

// Close releases the database pool and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	return errors.Join(errs...)
}

func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"clientiq/pkg/platform/httputil"
	"clientiq/pkg/requestcontext"
	"clientiq/pkg/tenancy"
	"clientiq/pkg/validation"
)

const releaseTimeout = 2 * time.Second

// ErrInvalidSchema is returned when a scope names a schema that could not
// have been provisioned.
var ErrInvalidSchema = errors.New("invalid tenant schema")

// Router pins a pooled connection to a tenant schema for the lifetime of a
// unit of work. search_path is session state, so the connection is reset
// before it goes back to the pool and discarded when the reset fails.
type Router struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRouter creates a schema router over db.
func NewRouter(db *sqlx.DB, logger *slog.Logger) *Router {
	return &Router{db: db, logger: logger}
}

// Bind acquires a connection, points it at scope.Schema and returns a
// context carrying both the scope and the connection. The release func is
// safe to call more than once and must always be called.
func (r *Router) Bind(ctx context.Context, scope tenancy.Scope) (context.Context, func(), error) {
	if scope.IsPlatform() || !validation.IsSchemaName(scope.Schema) {
		return ctx, func() {}, fmt.Errorf("%w: %q", ErrInvalidSchema, scope.Schema)
	}

	conn, err := r.acquire(ctx, scope.Schema)
	if err != nil && isRetryable(err) {
		r.logger.WarnContext(ctx, "retrying schema bind", "schema", scope.Schema, "error", err)
		conn, err = r.acquire(ctx, scope.Schema)
	}
	if err != nil {
		return ctx, func() {}, fmt.Errorf("bind schema %s: %w", scope.Schema, err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(conn, scope.Schema) })
	}

	bound := tenancy.WithScope(ctx, scope)
	bound = withBinding(bound, &binding{schema: scope.Schema, conn: conn})
	return bound, release, nil
}

func (r *Router) acquire(ctx context.Context, schema string) (*sqlx.Conn, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize()); err != nil {
		if isRetryable(err) {
			// never reached the server, the session is untouched
			_ = conn.Close()
		} else {
			discard(conn)
		}
		return nil, err
	}
	return conn, nil
}

// release runs on a fresh context: the request context may already be
// cancelled, and a connection must never re-enter the pool still bound.
func (r *Router) release(conn *sqlx.Conn, schema string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if _, err := conn.ExecContext(ctx, "RESET search_path"); err != nil {
		r.logger.Warn("discarding connection after failed search_path reset", "schema", schema, "error", err)
		discard(conn)
		return
	}
	_ = conn.Close()
}

// discard closes the physical connection instead of returning it to the pool.
func discard(conn *sqlx.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = conn.Close()
}

func isRetryable(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err)
}

// Middleware binds the resolved tenant schema for the rest of the request.
// Platform requests pass through untouched.
func (r *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		scope, ok := tenancy.FromContext(ctx)
		if !ok || scope.IsPlatform() {
			next.ServeHTTP(w, req)
			return
		}

		bound, release, err := r.Bind(ctx, scope)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to bind tenant schema",
				"schema", scope.Schema,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(ctx, w, err)
			return
		}
		defer release()

		next.ServeHTTP(w, req.WithContext(bound))
	})
}

// Binder binds a tenant scope for work outside the HTTP middleware:
// provisioning, the CLI and background workers.
type Binder interface {
	Bind(ctx context.Context, scope tenancy.Scope) (context.Context, func(), error)
}

// ScopeBinder is the Binder for in-memory stores, which only need the scope.
type ScopeBinder struct{}

func (ScopeBinder) Bind(ctx context.Context, scope tenancy.Scope) (context.Context, func(), error) {
	if scope.IsPlatform() {
		return ctx, func() {}, fmt.Errorf("%w: %q", ErrInvalidSchema, scope.Schema)
	}
	return tenancy.WithScope(ctx, scope), func() {}, nil
}

var (
	_ Binder = (*Router)(nil)
	_ Binder = ScopeBinder{}
)

// Package tenancy carries the tenant a request was resolved to.
//
// The scope lives only in a context.Context. There is no package-level
// "current tenant": anything that needs the tenant must be handed a context
// that was bound by the resolver, or bind one explicitly (workers, CLI).
package tenancy

import (
	"context"
	"errors"

	id "clientiq/pkg/domain"
)

// PublicSchema is the shared schema holding the tenant directory.
const PublicSchema = "public"

// ErrUnbound is returned when tenant-scoped work runs without a tenant scope.
var ErrUnbound = errors.New("tenant scope not bound")

// Scope identifies the tenant whose schema a unit of work runs against.
type Scope struct {
	TenantID id.TenantID
	Schema   string
	Domain   string
}

// Platform is the scope used for platform hosts (directory administration).
var Platform = Scope{Schema: PublicSchema}

// IsPlatform reports whether s is the shared, non-tenant scope.
func (s Scope) IsPlatform() bool {
	return s.TenantID.IsNil()
}

type scopeKey struct{}

// WithScope binds s to ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the bound scope.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// Tenant returns the bound tenant scope, failing for unbound and platform contexts.
func Tenant(ctx context.Context) (Scope, error) {
	s, ok := FromContext(ctx)
	if !ok || s.IsPlatform() {
		return Scope{}, ErrUnbound
	}
	return s, nil
}

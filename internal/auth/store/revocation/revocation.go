package revocation

import (
	"context"
	"sync"
	"time"

	"clientiq/pkg/tenancy"
)

// Blacklist records refresh token jtis that must never be exchanged again,
// even if the persisted row has not caught up. Entries are namespaced by the
// tenant schema bound to ctx and expire with the token they shadow.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// InMemoryBlacklist is the single-process Blacklist used without Redis.
type InMemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time // schema/jti -> expiry
	now     func() time.Time
}

// NewInMemory creates an empty blacklist. Expired entries are dropped lazily
// and by Sweep.
func NewInMemory() *InMemoryBlacklist {
	return &InMemoryBlacklist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for expiry checks.
func (b *InMemoryBlacklist) WithClock(now func() time.Time) *InMemoryBlacklist {
	b.now = now
	return b
}

func (b *InMemoryBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.revoked[scope.Schema+"/"+jti] = b.now().Add(normalizeTTL(ttl))
	return nil
}

func (b *InMemoryBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return false, err
	}
	key := scope.Schema + "/" + jti

	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.revoked[key]
	if !ok {
		return false, nil
	}
	if !b.now().Before(expiry) {
		delete(b.revoked, key)
		return false, nil
	}
	return true, nil
}

// Sweep drops every expired entry and returns how many were removed.
func (b *InMemoryBlacklist) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for key, expiry := range b.revoked {
		if !now.Before(expiry) {
			delete(b.revoked, key)
			removed++
		}
	}
	return removed
}

// normalizeTTL keeps already-expired tokens blacklisted briefly; a zero TTL
// would make SET EX fail and an in-memory entry vanish immediately.
func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

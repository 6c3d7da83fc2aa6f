package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "clientiq/pkg/domain"
	"clientiq/pkg/tenancy"
)

func scoped(schema string) context.Context {
	return tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: schema, Domain: schema})
}

// BlacklistSuite runs the same contract against both implementations.
type BlacklistSuite struct {
	suite.Suite
	newBlacklist func() Blacklist
	advance      func(time.Duration)
}

func TestInMemoryBlacklist(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.Run(t, &BlacklistSuite{
		newBlacklist: func() Blacklist { return NewInMemory().WithClock(func() time.Time { return clock }) },
		advance:      func(d time.Duration) { clock = clock.Add(d) },
	})
}

func TestRedisBlacklist(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	suite.Run(t, &BlacklistSuite{
		newBlacklist: func() Blacklist {
			mr.FlushAll()
			return NewRedis(client)
		},
		advance: mr.FastForward,
	})
}

func (s *BlacklistSuite) TestRevokeThenCheck() {
	bl := s.newBlacklist()
	ctx := scoped("acme")

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(bl.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = bl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *BlacklistSuite) TestEntriesExpireWithTheToken() {
	bl := s.newBlacklist()
	ctx := scoped("acme")
	s.Require().NoError(bl.Revoke(ctx, "jti-1", time.Minute))

	s.advance(2 * time.Minute)

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *BlacklistSuite) TestNonPositiveTTLStillRevokes() {
	bl := s.newBlacklist()
	ctx := scoped("acme")
	s.Require().NoError(bl.Revoke(ctx, "jti-1", -time.Minute))

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *BlacklistSuite) TestNamespacedPerTenant() {
	bl := s.newBlacklist()
	s.Require().NoError(bl.Revoke(scoped("acme"), "jti-1", time.Minute))

	revoked, err := bl.IsRevoked(scoped("widgets"), "jti-1")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *BlacklistSuite) TestRequiresTenantScope() {
	bl := s.newBlacklist()
	s.Error(bl.Revoke(context.Background(), "jti-1", time.Minute))
	_, err := bl.IsRevoked(tenancy.WithScope(context.Background(), tenancy.Platform), "jti-1")
	s.Error(err)
}

func TestRedisKeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, NewRedis(client).Revoke(scoped("acme"), "abc", 90*time.Second))

	assert.True(t, mr.Exists("clientiq:acme:bl:abc"))
	assert.Equal(t, 90*time.Second, mr.TTL("clientiq:acme:bl:abc"))
}

func TestSweep(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bl := NewInMemory().WithClock(func() time.Time { return clock })
	ctx := scoped("acme")
	require.NoError(t, bl.Revoke(ctx, "short", time.Second))
	require.NoError(t, bl.Revoke(ctx, "long", time.Hour))

	clock = clock.Add(time.Minute)
	assert.Equal(t, 1, bl.Sweep())
}

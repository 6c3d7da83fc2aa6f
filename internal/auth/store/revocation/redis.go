package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clientiq/pkg/tenancy"
)

const keyPrefix = "clientiq"

// RedisBlacklist shares the blacklist across server replicas. Keys look like
// clientiq:<schema>:bl:<jti> and carry the remaining token lifetime as TTL.
type RedisBlacklist struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func key(schema, jti string) string {
	return fmt.Sprintf("%s:%s:bl:%s", keyPrefix, schema, jti)
}

func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, key(scope.Schema, jti), 1, normalizeTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return false, err
	}
	n, err := b.client.Exists(ctx, key(scope.Schema, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return n > 0, nil
}

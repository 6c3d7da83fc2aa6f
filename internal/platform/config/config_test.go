package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.NotEmpty(t, cfg.Auth.JWTSigningKey)
	assert.Equal(t, "clientiq.local", cfg.Tenancy.BaseDomain)
	assert.False(t, cfg.SeedDemo)
	assert.Equal(t, 60, cfg.RateLimit.IPPerMinute)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CLIENTIQ_SERVER_ADDR", ":9090")
	t.Setenv("CLIENTIQ_TENANCY_BASE_DOMAIN", "Example.com")
	t.Setenv("CLIENTIQ_TENANCY_PLATFORM_HOSTS", "admin.example.com, localhost")
	t.Setenv("CLIENTIQ_AUTH_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("CLIENTIQ_SEED_DEMO", "true")
	t.Setenv("CLIENTIQ_CLEANUP_BUCKET_IDLE", "1h")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "example.com", cfg.Tenancy.BaseDomain)
	assert.Equal(t, []string{"admin.example.com", "localhost"}, cfg.Tenancy.PlatformHosts)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, time.Hour, cfg.Cleanup.BucketIdle)

	hosts := cfg.Tenancy.PlatformHostSet()
	assert.Contains(t, hosts, "example.com")
	assert.Contains(t, hosts, "api.example.com")
	assert.Contains(t, hosts, "admin.example.com")
}

func TestLoadRejectsMissingKeyOutsideDevelopment(t *testing.T) {
	t.Setenv("CLIENTIQ_ENVIRONMENT", "production")

	_, err := Load(New())
	assert.ErrorContains(t, err, "jwt_signing_key")
}

func TestLoadRejectsInvertedTTLs(t *testing.T) {
	t.Setenv("CLIENTIQ_AUTH_REFRESH_TOKEN_TTL", "1m")

	_, err := Load(New())
	assert.Error(t, err)
}

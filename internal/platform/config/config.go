package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. CLIENTIQ_SERVER_ADDR.
const EnvPrefix = "CLIENTIQ"

// Config is the full runtime configuration shared by the server and the admin CLI.
type Config struct {
	Environment string
	LogLevel    string
	// SeedDemo creates the acme and widgets demo tenants at startup.
	SeedDemo  bool
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Tenancy   TenancyConfig
	RateLimit RateLimitConfig
	Cleanup   CleanupConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	RequestTimeout time.Duration
	AdminToken     string
	TrustedProxies []string
}

// DatabaseConfig configures the Postgres pool. An empty URL selects the
// in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig configures the optional refresh-token blacklist cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	JWTSigningKey   string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// TenancyConfig configures host based tenant resolution.
type TenancyConfig struct {
	BaseDomain    string
	PlatformHosts []string
}

// RateLimitConfig configures the login limiter.
type RateLimitConfig struct {
	IPPerMinute    int
	IPBurst        int
	LoginPerMinute int
	LoginBurst     int
}

// CleanupConfig configures the background sweepers.
type CleanupConfig struct {
	Interval   time.Duration
	BucketIdle time.Duration
}

// SetDefaults registers every key with its default so viper's AutomaticEnv
// can find it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("seed_demo", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.tx_timeout", 5*time.Second)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("auth.jwt_signing_key", "")
	v.SetDefault("auth.issuer", "https://clientiq.local")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("tenancy.base_domain", "clientiq.local")
	v.SetDefault("tenancy.platform_hosts", []string{"localhost", "127.0.0.1"})

	v.SetDefault("ratelimit.ip_per_minute", 60)
	v.SetDefault("ratelimit.ip_burst", 20)
	v.SetDefault("ratelimit.login_per_minute", 10)
	v.SetDefault("ratelimit.login_burst", 5)

	v.SetDefault("cleanup.interval", 10*time.Minute)
	v.SetDefault("cleanup.bucket_idle", 10*time.Minute)
}

// New returns a viper instance reading CLIENTIQ_* environment variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load materializes a Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Environment: v.GetString("environment"),
		LogLevel:    v.GetString("log_level"),
		SeedDemo:    v.GetBool("seed_demo"),
		Server: Server{
			Addr:           v.GetString("server.addr"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			AdminToken:     v.GetString("server.admin_token"),
			TrustedProxies: splitList(v.GetStringSlice("server.trusted_proxies")),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			TxTimeout:       v.GetDuration("database.tx_timeout"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Auth: AuthConfig{
			JWTSigningKey:   v.GetString("auth.jwt_signing_key"),
			Issuer:          strings.TrimRight(v.GetString("auth.issuer"), "/"),
			AccessTokenTTL:  v.GetDuration("auth.access_token_ttl"),
			RefreshTokenTTL: v.GetDuration("auth.refresh_token_ttl"),
			BcryptCost:      v.GetInt("auth.bcrypt_cost"),
		},
		Tenancy: TenancyConfig{
			BaseDomain:    strings.ToLower(strings.TrimSpace(v.GetString("tenancy.base_domain"))),
			PlatformHosts: splitList(v.GetStringSlice("tenancy.platform_hosts")),
		},
		RateLimit: RateLimitConfig{
			IPPerMinute:    v.GetInt("ratelimit.ip_per_minute"),
			IPBurst:        v.GetInt("ratelimit.ip_burst"),
			LoginPerMinute: v.GetInt("ratelimit.login_per_minute"),
			LoginBurst:     v.GetInt("ratelimit.login_burst"),
		},
		Cleanup: CleanupConfig{
			Interval:   v.GetDuration("cleanup.interval"),
			BucketIdle: v.GetDuration("cleanup.bucket_idle"),
		},
	}

	if cfg.Auth.JWTSigningKey == "" {
		if cfg.Environment != "development" && cfg.Environment != "test" {
			return Config{}, fmt.Errorf("auth.jwt_signing_key is required in %s", cfg.Environment)
		}
		// Use a default for development - should be overridden in production
		cfg.Auth.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= cfg.Auth.AccessTokenTTL {
		return Config{}, fmt.Errorf("refresh token ttl must exceed access token ttl")
	}
	if cfg.Tenancy.BaseDomain == "" {
		return Config{}, fmt.Errorf("tenancy.base_domain is required")
	}
	return cfg, nil
}

// FromEnv loads configuration from the environment so main stays lean.
func FromEnv() (Config, error) {
	return Load(New())
}

// PlatformHostSet returns every host served with the platform scope: the
// configured list plus the bare base domain and its api. alias.
func (t TenancyConfig) PlatformHostSet() map[string]struct{} {
	hosts := map[string]struct{}{
		t.BaseDomain:          {},
		"api." + t.BaseDomain: {},
	}
	for _, h := range t.PlatformHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}
	return hosts
}

// splitList accepts both repeated values and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

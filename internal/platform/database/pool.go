package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"clientiq/internal/platform/config"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

const pingTimeout = 5 * time.Second

// Pool owns the shared *sqlx.DB. Tenant requests borrow single connections
// from it through Router.
type Pool struct {
	db *sqlx.DB
}

// New opens and pings the database described by cfg.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	db, err := sqlx.Open(DriverName, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) DB() *sqlx.DB {
	return p.db
}

// Health pings the database.
func (p *Pool) Health(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Collector exports database/sql pool statistics under db_name="clientiq".
func (p *Pool) Collector() prometheus.Collector {
	return collectors.NewDBStatsCollector(p.db.DB, "clientiq")
}

func (p *Pool) Close() error {
	return p.db.Close()
}

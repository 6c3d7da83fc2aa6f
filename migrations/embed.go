// Package migrations embeds the SQL migrations. public/ holds the shared
// tenant directory; tenant/ is applied once per tenant schema at provisioning.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed public/*.sql
var PublicFS embed.FS

//go:embed tenant/*.sql
var TenantFS embed.FS

// Execer is satisfied by *sql.DB, *sql.Conn, *sql.Tx and their sqlx wrappers.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Files returns the up migrations under dir in lexical order.
func Files(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Apply runs every up migration under dir against q. The statements are
// idempotent, so re-running against a provisioned schema is a no-op.
func Apply(ctx context.Context, q Execer, fsys fs.FS, dir string) error {
	names, err := Files(fsys, dir)
	if err != nil {
		return err
	}
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := q.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// ApplyPublic migrates the shared directory tables.
func ApplyPublic(ctx context.Context, q Execer) error {
	return Apply(ctx, q, PublicFS, "public")
}

// ApplyTenant migrates the schema q's search_path points at.
func ApplyTenant(ctx context.Context, q Execer) error {
	return Apply(ctx, q, TenantFS, "tenant")
}

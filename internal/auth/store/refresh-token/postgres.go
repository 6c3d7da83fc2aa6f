package refreshtoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"clientiq/internal/auth/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists refresh tokens in the tenant schema bound to the
// context.
type PostgresStore struct{}

// NewPostgres constructs a PostgreSQL-backed refresh token store.
func NewPostgres() *PostgresStore {
	return &PostgresStore{}
}

var tokenColumns = []string{"jti", "user_id", "issued_at", "expires_at", "revoked_at", "replaced_by", "user_agent", "client_ip"}

type tokenRow struct {
	JTI        string         `db:"jti"`
	UserID     uuid.UUID      `db:"user_id"`
	IssuedAt   time.Time      `db:"issued_at"`
	ExpiresAt  time.Time      `db:"expires_at"`
	RevokedAt  sql.NullTime   `db:"revoked_at"`
	ReplacedBy sql.NullString `db:"replaced_by"`
	UserAgent  string         `db:"user_agent"`
	ClientIP   string         `db:"client_ip"`
}

func (r tokenRow) toModel() *models.RefreshToken {
	t := &models.RefreshToken{
		JTI:        r.JTI,
		UserID:     id.UserID(r.UserID),
		IssuedAt:   r.IssuedAt,
		ExpiresAt:  r.ExpiresAt,
		ReplacedBy: r.ReplacedBy.String,
		UserAgent:  r.UserAgent,
		ClientIP:   r.ClientIP,
	}
	if r.RevokedAt.Valid {
		at := r.RevokedAt.Time
		t.RevokedAt = &at
	}
	return t
}

func (s *PostgresStore) Create(ctx context.Context, token *models.RefreshToken) error {
	if token == nil {
		return fmt.Errorf("refresh token is required")
	}
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}
	return insert(ctx, q, token)
}

func insert(ctx context.Context, q database.Querier, token *models.RefreshToken) error {
	query, args, err := psql.Insert("refresh_tokens").
		Columns("jti", "user_id", "issued_at", "expires_at", "user_agent", "client_ip").
		Values(token.JTI, uuid.UUID(token.UserID), token.IssuedAt, token.ExpiresAt, token.UserAgent, token.ClientIP).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("refresh token exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, jti string) (*models.RefreshToken, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	return find(ctx, q, jti)
}

func find(ctx context.Context, q database.Querier, jti string) (*models.RefreshToken, error) {
	query, args, err := psql.Select(tokenColumns...).From("refresh_tokens").Where(sq.Eq{"jti": jti}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find refresh token: %w", err)
	}
	var row tokenRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return row.toModel(), nil
}

// Rotate revokes jti with a conditional update and inserts replacement. The
// update only matches an unrevoked, unexpired row, so a replayed token loses
// even when two rotations race. Run it inside RunInTx.
func (s *PostgresStore) Rotate(ctx context.Context, jti string, replacement *models.RefreshToken, now time.Time) error {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("refresh_tokens").
		Set("revoked_at", now).
		Set("replaced_by", replacement.JTI).
		Where(sq.Eq{"jti": jti, "revoked_at": nil}).
		Where(sq.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build rotate refresh token: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate refresh token rows: %w", err)
	}
	if rows == 0 {
		current, err := find(ctx, q, jti)
		if err != nil {
			return err
		}
		if current.IsRevoked() {
			return fmt.Errorf("refresh token already rotated: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("refresh token expired: %w", sentinel.ErrExpired)
	}
	return insert(ctx, q, replacement)
}

func (s *PostgresStore) Revoke(ctx context.Context, jti string, now time.Time) (bool, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return false, err
	}
	query, args, err := psql.Update("refresh_tokens").
		Set("revoked_at", now).
		Where(sq.Eq{"jti": jti, "revoked_at": nil}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build revoke refresh token: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token rows: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.RefreshToken, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Update("refresh_tokens").
		Set("revoked_at", now).
		Where(sq.Eq{"user_id": uuid.UUID(userID), "revoked_at": nil}).
		Where(sq.Gt{"expires_at": now}).
		Suffix("RETURNING " + strings.Join(tokenColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build revoke user tokens: %w", err)
	}
	var rows []tokenRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("revoke user tokens: %w", err)
	}
	return toModels(rows), nil
}

func (s *PostgresStore) ListActiveByUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.RefreshToken, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(tokenColumns...).From("refresh_tokens").
		Where(sq.Eq{"user_id": uuid.UUID(userID), "revoked_at": nil}).
		Where(sq.Gt{"expires_at": now}).
		OrderBy("issued_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list refresh tokens: %w", err)
	}
	var rows []tokenRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	return toModels(rows), nil
}

// DeleteExpired removes all refresh tokens that have expired as of now.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return 0, err
	}
	query, args, err := psql.Delete("refresh_tokens").Where(sq.Lt{"expires_at": now}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired refresh tokens: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens rows: %w", err)
	}
	return int(rows), nil
}

func toModels(rows []tokenRow) []*models.RefreshToken {
	out := make([]*models.RefreshToken, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

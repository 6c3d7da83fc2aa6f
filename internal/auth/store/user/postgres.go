package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"clientiq/internal/auth/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists users in the tenant schema bound to the context.
type PostgresStore struct{}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres() *PostgresStore {
	return &PostgresStore{}
}

var userColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "role_id",
	"is_active", "is_admin", "last_login_at", "created_at", "updated_at",
}

type userRow struct {
	ID           uuid.UUID     `db:"id"`
	Email        string        `db:"email"`
	PasswordHash string        `db:"password_hash"`
	FirstName    string        `db:"first_name"`
	LastName     string        `db:"last_name"`
	RoleID       uuid.NullUUID `db:"role_id"`
	Active       bool          `db:"is_active"`
	Admin        bool          `db:"is_admin"`
	LastLoginAt  sql.NullTime  `db:"last_login_at"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}

func (r userRow) toModel() *models.User {
	u := &models.User{
		ID:           id.UserID(r.ID),
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Active:       r.Active,
		Admin:        r.Admin,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.RoleID.Valid {
		u.RoleID = id.RoleID(r.RoleID.UUID)
	}
	if r.LastLoginAt.Valid {
		at := r.LastLoginAt.Time
		u.LastLoginAt = &at
	}
	return u
}

func nullRole(roleID id.RoleID) uuid.NullUUID {
	if roleID.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(roleID), Valid: true}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(uuid.UUID(user.ID), user.Email, user.PasswordHash, user.FirstName, user.LastName, nullRole(user.RoleID),
			user.Active, user.Admin, nil, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("email taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, sq.Eq{"id": uuid.UUID(userID)})
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, sq.Eq{"email": email})
}

func (s *PostgresStore) findOne(ctx context.Context, where sq.Eq) (*models.User, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var row userRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	sel := psql.Select(userColumns...).From("users").OrderBy("email").Offset(uint64(max(offset, 0)))
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users: %w", err)
	}

	var rows []userRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("users").SetMap(map[string]any{
		"password_hash": user.PasswordHash,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"role_id":       nullRole(user.RoleID),
		"is_active":     user.Active,
		"is_admin":      user.Admin,
		"updated_at":    user.UpdatedAt,
	}).Where(sq.Eq{"id": uuid.UUID(user.ID)}).ToSql()
	if err != nil {
		return fmt.Errorf("build update user: %w", err)
	}
	return execOne(ctx, q, query, args, "update user")
}

func (s *PostgresStore) RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("users").Set("last_login_at", at).Where(sq.Eq{"id": uuid.UUID(userID)}).ToSql()
	if err != nil {
		return fmt.Errorf("build record login: %w", err)
	}
	return execOne(ctx, q, query, args, "record login")
}

func execOne(ctx context.Context, q database.Querier, query string, args []any, action string) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", action, err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

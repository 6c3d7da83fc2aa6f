package role

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"clientiq/internal/authz/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore reads and writes roles in the schema bound to the context.
// Table names are unqualified on purpose: search_path selects the tenant.
type PostgresStore struct{}

func NewPostgres() *PostgresStore {
	return &PostgresStore{}
}

type roleRow struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r roleRow) toModel(perms []string) *models.Role {
	if perms == nil {
		perms = []string{}
	}
	return &models.Role{
		ID:          id.RoleID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type permissionRow struct {
	RoleID uuid.UUID `db:"role_id"`
	Code   string    `db:"permission_code"`
}

var roleColumns = []string{"id", "name", "description", "created_at", "updated_at"}

// Create inserts the role and its permissions. Run it inside RunInTx.
func (s *PostgresStore) Create(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("roles").
		Columns(roleColumns...).
		Values(uuid.UUID(role.ID), role.Name, role.Description, role.CreatedAt, role.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("role name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return insertPermissions(ctx, q, role.ID, role.Permissions)
}

func (s *PostgresStore) FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	return s.findOne(ctx, sq.Eq{"id": uuid.UUID(roleID)})
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return s.findOne(ctx, sq.Expr("lower(name) = lower(?)", name))
}

func (s *PostgresStore) findOne(ctx context.Context, where sq.Sqlizer) (*models.Role, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(roleColumns...).From("roles").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role: %w", err)
	}

	var row roleRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}

	perms, err := loadPermissions(ctx, q, row.ID)
	if err != nil {
		return nil, err
	}
	return row.toModel(perms[row.ID]), nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Role, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(roleColumns...).From("roles").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles: %w", err)
	}

	var rows []roleRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	perms, err := loadPermissions(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel(perms[row.ID]))
	}
	return out, nil
}

// ReplacePermissions swaps the role's permission set. Run it inside RunInTx.
func (s *PostgresStore) ReplacePermissions(ctx context.Context, roleID id.RoleID, codes []string, now time.Time) error {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("roles").Set("updated_at", now).Where(sq.Eq{"id": uuid.UUID(roleID)}).ToSql()
	if err != nil {
		return fmt.Errorf("build update role: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update role rows: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}

	query, args, err = psql.Delete("role_permissions").Where(sq.Eq{"role_id": uuid.UUID(roleID)}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete permissions: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete role permissions: %w", err)
	}
	return insertPermissions(ctx, q, roleID, codes)
}

func insertPermissions(ctx context.Context, q database.Querier, roleID id.RoleID, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	ins := psql.Insert("role_permissions").Columns("role_id", "permission_code")
	for _, code := range codes {
		ins = ins.Values(uuid.UUID(roleID), code)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert permissions: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert role permissions: %w", err)
	}
	return nil
}

// loadPermissions returns permission codes grouped by role, limited to
// roleIDs when any are given.
func loadPermissions(ctx context.Context, q database.Querier, roleIDs ...uuid.UUID) (map[uuid.UUID][]string, error) {
	sel := psql.Select("role_id", "permission_code").From("role_permissions").OrderBy("role_id", "permission_code")
	if len(roleIDs) > 0 {
		sel = sel.Where(sq.Eq{"role_id": roleIDs})
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permissions: %w", err)
	}

	var rows []permissionRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	out := make(map[uuid.UUID][]string, len(rows))
	for _, row := range rows {
		out[row.RoleID] = append(out[row.RoleID], row.Code)
	}
	return out, nil
}

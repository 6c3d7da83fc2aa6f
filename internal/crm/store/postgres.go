package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"clientiq/internal/crm/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres persists CRM records in the tenant schema bound to the context.
// Table names are unqualified; search_path selects the schema.
type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

var (
	companyColumns = []string{
		"id", "name", "domain", "industry", "size", "phone", "address", "owner_id", "created_at", "updated_at",
	}
	contactColumns = []string{
		"id", "first_name", "last_name", "email", "phone", "title", "notes", "company_id", "owner_id",
		"created_at", "updated_at",
	}
	opportunityColumns = []string{
		"id", "name", "amount_cents", "currency", "stage", "close_date", "company_id", "contact_id", "owner_id",
		"created_at", "updated_at",
	}
	activityColumns = []string{
		"id", "type", "subject", "description", "due_at", "completed_at", "contact_id", "company_id",
		"opportunity_id", "owner_id", "created_at", "updated_at",
	}
)

func nullID[T ~[16]byte](v T) uuid.NullUUID {
	u := uuid.UUID(v)
	if u == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: u, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// likePattern escapes LIKE wildcards so search text is matched literally.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}

func searchClause(search string, columns ...string) sq.Sqlizer {
	if search == "" {
		return nil
	}
	pattern := likePattern(search)
	or := make(sq.Or, 0, len(columns))
	for _, c := range columns {
		or = append(or, sq.ILike{c: pattern})
	}
	return or
}

// list runs the COUNT and the page query against the same filter.
func list[R any](ctx context.Context, table string, columns []string, where sq.Sqlizer, f models.ListFilter) ([]R, int, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, 0, err
	}

	count := psql.Select("COUNT(*)").From(table)
	sel := psql.Select(columns...).From(table).OrderBy("created_at DESC", "id").Offset(uint64(max(f.Offset, 0)))
	if where != nil {
		count = count.Where(where)
		sel = sel.Where(where)
	}
	if f.Limit > 0 {
		sel = sel.Limit(uint64(f.Limit))
	}

	query, args, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count %s: %w", table, err)
	}
	var total int
	if err := q.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", table, err)
	}

	query, args, err = sel.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list %s: %w", table, err)
	}
	var rows []R
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", table, err)
	}
	return rows, total, nil
}

func findOne[R any](ctx context.Context, table string, columns []string, key uuid.UUID, noun string) (*R, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(columns...).From(table).Where(sq.Eq{"id": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", noun, err)
	}
	var row R
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s not found: %w", noun, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find %s: %w", noun, err)
	}
	return &row, nil
}

func insert(ctx context.Context, table string, columns []string, values []any, noun string) error {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert(table).Columns(columns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", noun, err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%s reference: %w", noun, sentinel.ErrInvalidInput)
		}
		return fmt.Errorf("insert %s: %w", noun, err)
	}
	return nil
}

func update(ctx context.Context, table string, set map[string]any, key uuid.UUID, noun string) error {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}
	query, args, err := psql.Update(table).SetMap(set).Where(sq.Eq{"id": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", noun, err)
	}
	return execOne(ctx, q, query, args, "update "+noun, noun)
}

func remove(ctx context.Context, table string, key uuid.UUID, noun string) error {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return err
	}
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", noun, err)
	}
	return execOne(ctx, q, query, args, "delete "+noun, noun)
}

func execOne(ctx context.Context, q database.Querier, query string, args []any, action, noun string) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%s reference: %w", noun, sentinel.ErrInvalidInput)
		}
		return fmt.Errorf("%s: %w", action, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", action, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found: %w", noun, sentinel.ErrNotFound)
	}
	return nil
}

func toPage[R any, M any](rows []R, total int, conv func(R) M) *models.Page[M] {
	items := make([]M, 0, len(rows))
	for _, r := range rows {
		items = append(items, conv(r))
	}
	return &models.Page[M]{Items: items, Total: total}
}

// Companies

type companyRow struct {
	ID        uuid.UUID     `db:"id"`
	Name      string        `db:"name"`
	Domain    string        `db:"domain"`
	Industry  string        `db:"industry"`
	Size      string        `db:"size"`
	Phone     string        `db:"phone"`
	Address   string        `db:"address"`
	OwnerID   uuid.NullUUID `db:"owner_id"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func (r companyRow) toModel() *models.Company {
	return &models.Company{
		ID:        id.CompanyID(r.ID),
		Name:      r.Name,
		Domain:    r.Domain,
		Industry:  r.Industry,
		Size:      r.Size,
		Phone:     r.Phone,
		Address:   r.Address,
		OwnerID:   id.UserID(r.OwnerID.UUID),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Postgres) ListCompanies(ctx context.Context, f models.ListFilter) (*models.Page[*models.Company], error) {
	rows, total, err := list[companyRow](ctx, "companies", companyColumns, searchClause(f.Search, "name", "domain"), f)
	if err != nil {
		return nil, err
	}
	return toPage(rows, total, companyRow.toModel), nil
}

func (s *Postgres) CreateCompany(ctx context.Context, c *models.Company) error {
	return insert(ctx, "companies", companyColumns, []any{
		uuid.UUID(c.ID), c.Name, c.Domain, c.Industry, c.Size, c.Phone, c.Address, nullID(c.OwnerID),
		c.CreatedAt, c.UpdatedAt,
	}, "company")
}

func (s *Postgres) FindCompany(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	row, err := findOne[companyRow](ctx, "companies", companyColumns, uuid.UUID(companyID), "company")
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Postgres) UpdateCompany(ctx context.Context, c *models.Company) error {
	return update(ctx, "companies", map[string]any{
		"name":       c.Name,
		"domain":     c.Domain,
		"industry":   c.Industry,
		"size":       c.Size,
		"phone":      c.Phone,
		"address":    c.Address,
		"owner_id":   nullID(c.OwnerID),
		"updated_at": c.UpdatedAt,
	}, uuid.UUID(c.ID), "company")
}

func (s *Postgres) DeleteCompany(ctx context.Context, companyID id.CompanyID) error {
	return remove(ctx, "companies", uuid.UUID(companyID), "company")
}

// Contacts

type contactRow struct {
	ID        uuid.UUID     `db:"id"`
	FirstName string        `db:"first_name"`
	LastName  string        `db:"last_name"`
	Email     string        `db:"email"`
	Phone     string        `db:"phone"`
	Title     string        `db:"title"`
	Notes     string        `db:"notes"`
	CompanyID uuid.NullUUID `db:"company_id"`
	OwnerID   uuid.NullUUID `db:"owner_id"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func (r contactRow) toModel() *models.Contact {
	return &models.Contact{
		ID:        id.ContactID(r.ID),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Title:     r.Title,
		Notes:     r.Notes,
		CompanyID: id.CompanyID(r.CompanyID.UUID),
		OwnerID:   id.UserID(r.OwnerID.UUID),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Postgres) ListContacts(ctx context.Context, f models.ListFilter) (*models.Page[*models.Contact], error) {
	where := searchClause(f.Search, "first_name", "last_name", "email")
	rows, total, err := list[contactRow](ctx, "contacts", contactColumns, where, f)
	if err != nil {
		return nil, err
	}
	return toPage(rows, total, contactRow.toModel), nil
}

func (s *Postgres) CreateContact(ctx context.Context, c *models.Contact) error {
	return insert(ctx, "contacts", contactColumns, []any{
		uuid.UUID(c.ID), c.FirstName, c.LastName, c.Email, c.Phone, c.Title, c.Notes,
		nullID(c.CompanyID), nullID(c.OwnerID), c.CreatedAt, c.UpdatedAt,
	}, "contact")
}

func (s *Postgres) FindContact(ctx context.Context, contactID id.ContactID) (*models.Contact, error) {
	row, err := findOne[contactRow](ctx, "contacts", contactColumns, uuid.UUID(contactID), "contact")
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Postgres) UpdateContact(ctx context.Context, c *models.Contact) error {
	return update(ctx, "contacts", map[string]any{
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
		"title":      c.Title,
		"notes":      c.Notes,
		"company_id": nullID(c.CompanyID),
		"owner_id":   nullID(c.OwnerID),
		"updated_at": c.UpdatedAt,
	}, uuid.UUID(c.ID), "contact")
}

func (s *Postgres) DeleteContact(ctx context.Context, contactID id.ContactID) error {
	return remove(ctx, "contacts", uuid.UUID(contactID), "contact")
}

// Opportunities

type opportunityRow struct {
	ID          uuid.UUID     `db:"id"`
	Name        string        `db:"name"`
	AmountCents int64         `db:"amount_cents"`
	Currency    string        `db:"currency"`
	Stage       string        `db:"stage"`
	CloseDate   sql.NullTime  `db:"close_date"`
	CompanyID   uuid.NullUUID `db:"company_id"`
	ContactID   uuid.NullUUID `db:"contact_id"`
	OwnerID     uuid.NullUUID `db:"owner_id"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (r opportunityRow) toModel() *models.Opportunity {
	return &models.Opportunity{
		ID:          id.OpportunityID(r.ID),
		Name:        r.Name,
		AmountCents: r.AmountCents,
		Currency:    strings.TrimSpace(r.Currency),
		Stage:       models.Stage(r.Stage),
		CloseDate:   timePtr(r.CloseDate),
		CompanyID:   id.CompanyID(r.CompanyID.UUID),
		ContactID:   id.ContactID(r.ContactID.UUID),
		OwnerID:     id.UserID(r.OwnerID.UUID),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (s *Postgres) ListOpportunities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Opportunity], error) {
	rows, total, err := list[opportunityRow](ctx, "opportunities", opportunityColumns, searchClause(f.Search, "name"), f)
	if err != nil {
		return nil, err
	}
	return toPage(rows, total, opportunityRow.toModel), nil
}

func (s *Postgres) CreateOpportunity(ctx context.Context, o *models.Opportunity) error {
	return insert(ctx, "opportunities", opportunityColumns, []any{
		uuid.UUID(o.ID), o.Name, o.AmountCents, o.Currency, string(o.Stage), nullTime(o.CloseDate),
		nullID(o.CompanyID), nullID(o.ContactID), nullID(o.OwnerID), o.CreatedAt, o.UpdatedAt,
	}, "opportunity")
}

func (s *Postgres) FindOpportunity(ctx context.Context, oppID id.OpportunityID) (*models.Opportunity, error) {
	row, err := findOne[opportunityRow](ctx, "opportunities", opportunityColumns, uuid.UUID(oppID), "opportunity")
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Postgres) UpdateOpportunity(ctx context.Context, o *models.Opportunity) error {
	return update(ctx, "opportunities", map[string]any{
		"name":         o.Name,
		"amount_cents": o.AmountCents,
		"currency":     o.Currency,
		"stage":        string(o.Stage),
		"close_date":   nullTime(o.CloseDate),
		"company_id":   nullID(o.CompanyID),
		"contact_id":   nullID(o.ContactID),
		"owner_id":     nullID(o.OwnerID),
		"updated_at":   o.UpdatedAt,
	}, uuid.UUID(o.ID), "opportunity")
}

func (s *Postgres) DeleteOpportunity(ctx context.Context, oppID id.OpportunityID) error {
	return remove(ctx, "opportunities", uuid.UUID(oppID), "opportunity")
}

type pipelineRow struct {
	Stage       string `db:"stage"`
	Currency    string `db:"currency"`
	Count       int    `db:"count"`
	AmountCents int64  `db:"amount_cents"`
}

func (s *Postgres) PipelineRows(ctx context.Context) ([]models.PipelineRow, error) {
	q, err := database.TenantQuerier(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.
		Select("stage", "currency", "COUNT(*) AS count", "COALESCE(SUM(amount_cents), 0) AS amount_cents").
		From("opportunities").
		GroupBy("stage", "currency").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	var rows []pipelineRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	out := make([]models.PipelineRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PipelineRow{
			Stage:       models.Stage(r.Stage),
			Currency:    strings.TrimSpace(r.Currency),
			Count:       r.Count,
			AmountCents: r.AmountCents,
		})
	}
	return out, nil
}

// Activities

type activityRow struct {
	ID            uuid.UUID     `db:"id"`
	Type          string        `db:"type"`
	Subject       string        `db:"subject"`
	Description   string        `db:"description"`
	DueAt         sql.NullTime  `db:"due_at"`
	CompletedAt   sql.NullTime  `db:"completed_at"`
	ContactID     uuid.NullUUID `db:"contact_id"`
	CompanyID     uuid.NullUUID `db:"company_id"`
	OpportunityID uuid.NullUUID `db:"opportunity_id"`
	OwnerID       uuid.NullUUID `db:"owner_id"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r activityRow) toModel() *models.Activity {
	return &models.Activity{
		ID:            id.ActivityID(r.ID),
		Type:          models.ActivityType(r.Type),
		Subject:       r.Subject,
		Description:   r.Description,
		DueAt:         timePtr(r.DueAt),
		CompletedAt:   timePtr(r.CompletedAt),
		ContactID:     id.ContactID(r.ContactID.UUID),
		CompanyID:     id.CompanyID(r.CompanyID.UUID),
		OpportunityID: id.OpportunityID(r.OpportunityID.UUID),
		OwnerID:       id.UserID(r.OwnerID.UUID),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (s *Postgres) ListActivities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Activity], error) {
	rows, total, err := list[activityRow](ctx, "activities", activityColumns, searchClause(f.Search, "subject"), f)
	if err != nil {
		return nil, err
	}
	return toPage(rows, total, activityRow.toModel), nil
}

func (s *Postgres) CreateActivity(ctx context.Context, a *models.Activity) error {
	return insert(ctx, "activities", activityColumns, []any{
		uuid.UUID(a.ID), string(a.Type), a.Subject, a.Description, nullTime(a.DueAt), nullTime(a.CompletedAt),
		nullID(a.ContactID), nullID(a.CompanyID), nullID(a.OpportunityID), nullID(a.OwnerID),
		a.CreatedAt, a.UpdatedAt,
	}, "activity")
}

func (s *Postgres) FindActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	row, err := findOne[activityRow](ctx, "activities", activityColumns, uuid.UUID(activityID), "activity")
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Postgres) UpdateActivity(ctx context.Context, a *models.Activity) error {
	return update(ctx, "activities", map[string]any{
		"type":           string(a.Type),
		"subject":        a.Subject,
		"description":    a.Description,
		"due_at":         nullTime(a.DueAt),
		"completed_at":   nullTime(a.CompletedAt),
		"contact_id":     nullID(a.ContactID),
		"company_id":     nullID(a.CompanyID),
		"opportunity_id": nullID(a.OpportunityID),
		"owner_id":       nullID(a.OwnerID),
		"updated_at":     a.UpdatedAt,
	}, uuid.UUID(a.ID), "activity")
}

func (s *Postgres) DeleteActivity(ctx context.Context, activityID id.ActivityID) error {
	return remove(ctx, "activities", uuid.UUID(activityID), "activity")
}

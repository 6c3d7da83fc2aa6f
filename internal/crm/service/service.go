// Package service implements the CRM use cases of a tenant. Every call runs
// against the schema bound to ctx; a reference to a record of another tenant
// is indistinguishable from a reference to nothing.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	authmodels "clientiq/internal/auth/models"
	"clientiq/internal/crm/models"
	"clientiq/internal/platform/database"
	"clientiq/internal/platform/metrics"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/requestcontext"
)

// Store persists CRM records.
// Error Contract: Find, Update and Delete return sentinel.ErrNotFound for a
// missing record; writes may return sentinel.ErrInvalidInput when a
// reference no longer resolves.
type Store interface {
	ListCompanies(ctx context.Context, f models.ListFilter) (*models.Page[*models.Company], error)
	CreateCompany(ctx context.Context, c *models.Company) error
	FindCompany(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	UpdateCompany(ctx context.Context, c *models.Company) error
	DeleteCompany(ctx context.Context, companyID id.CompanyID) error

	ListContacts(ctx context.Context, f models.ListFilter) (*models.Page[*models.Contact], error)
	CreateContact(ctx context.Context, c *models.Contact) error
	FindContact(ctx context.Context, contactID id.ContactID) (*models.Contact, error)
	UpdateContact(ctx context.Context, c *models.Contact) error
	DeleteContact(ctx context.Context, contactID id.ContactID) error

	ListOpportunities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Opportunity], error)
	CreateOpportunity(ctx context.Context, o *models.Opportunity) error
	FindOpportunity(ctx context.Context, oppID id.OpportunityID) (*models.Opportunity, error)
	UpdateOpportunity(ctx context.Context, o *models.Opportunity) error
	DeleteOpportunity(ctx context.Context, oppID id.OpportunityID) error
	PipelineRows(ctx context.Context) ([]models.PipelineRow, error)

	ListActivities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Activity], error)
	CreateActivity(ctx context.Context, a *models.Activity) error
	FindActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	UpdateActivity(ctx context.Context, a *models.Activity) error
	DeleteActivity(ctx context.Context, activityID id.ActivityID) error
}

// UserLookup resolves record owners among the users of the bound tenant.
type UserLookup interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

type Service struct {
	store   Store
	users   UserLookup
	tx      database.TxRunner
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, users UserLookup, tx database.TxRunner, opts ...Option) *Service {
	s := &Service{store: store, users: users, tx: tx, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resource names used for errors, logs and metrics.
const (
	resourceCompanies     = "companies"
	resourceContacts      = "contacts"
	resourceOpportunities = "opportunities"
	resourceActivities    = "activities"
)

type errorMapping struct {
	sentinel error
	code     dErrors.Code
	message  string
}

func mappingsFor(noun string) []errorMapping {
	return []errorMapping{
		{sentinel.ErrNotFound, dErrors.CodeNotFound, noun + " not found"},
		{sentinel.ErrInvalidInput, dErrors.CodeValidation, "a referenced record does not exist"},
	}
}

// translate maps store errors to domain errors once. Errors that already
// carry a code pass through.
func translate(err error, noun, action string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	for _, m := range mappingsFor(noun) {
		if errors.Is(err, m.sentinel) {
			return dErrors.Wrap(err, m.code, m.message)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

func (s *Service) recordWrite(ctx context.Context, resource, action, recordID string) {
	s.metrics.ObserveCRMWrite(resource, action)
	s.logger.InfoContext(ctx, "crm record written",
		"resource", resource,
		"action", action,
		"record_id", recordID,
		"user_id", requestcontext.UserID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}

// parseRef parses an optional reference id. Request validation has already
// checked the format, so a failure here is still reported as validation.
func parseRef[T any](raw, field string, parse func(string) (T, error)) (T, error) {
	var zero T
	if raw == "" {
		return zero, nil
	}
	v, err := parse(raw)
	if err != nil {
		return zero, dErrors.New(dErrors.CodeValidation, field+" must be a valid id")
	}
	return v, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "close_date must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

func danglingRef(err error, field, noun string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeValidation, field+" does not reference an existing "+noun)
	}
	return err
}

func (s *Service) checkCompany(ctx context.Context, companyID id.CompanyID) error {
	if companyID.IsNil() {
		return nil
	}
	_, err := s.store.FindCompany(ctx, companyID)
	return danglingRef(err, "company_id", "company")
}

func (s *Service) checkContact(ctx context.Context, contactID id.ContactID) error {
	if contactID.IsNil() {
		return nil
	}
	_, err := s.store.FindContact(ctx, contactID)
	return danglingRef(err, "contact_id", "contact")
}

func (s *Service) checkOpportunity(ctx context.Context, oppID id.OpportunityID) error {
	if oppID.IsNil() {
		return nil
	}
	_, err := s.store.FindOpportunity(ctx, oppID)
	return danglingRef(err, "opportunity_id", "opportunity")
}

func (s *Service) checkOwner(ctx context.Context, userID id.UserID) error {
	if userID.IsNil() {
		return nil
	}
	_, err := s.users.FindByID(ctx, userID)
	return danglingRef(err, "owner_id", "user")
}

// ownerOrCaller resolves the owner of a new record; without an explicit
// owner the caller owns it.
func ownerOrCaller(ctx context.Context, raw string) (id.UserID, error) {
	if raw == "" {
		return requestcontext.UserID(ctx), nil
	}
	return parseRef(raw, "owner_id", id.ParseUserID)
}

// patchRef applies an optional reference update: nil keeps the current
// value, an empty string clears it.
func patchRef[T any](current *T, raw *string, field string, parse func(string) (T, error)) (bool, error) {
	if raw == nil {
		return false, nil
	}
	v, err := parseRef(*raw, field, parse)
	if err != nil {
		return false, err
	}
	*current = v
	return true, nil
}

func patch[T any](current *T, v *T) {
	if v != nil {
		*current = *v
	}
}

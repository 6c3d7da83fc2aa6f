package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clientiq/internal/authz/middleware"
	authzmodels "clientiq/internal/authz/models"
	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
)

// Service defines the CRM operations used by the handler.
type Service interface {
	ListCompanies(ctx context.Context, f models.ListFilter) (*models.Page[*models.Company], error)
	GetCompany(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	CreateCompany(ctx context.Context, req *models.CreateCompanyRequest) (*models.Company, error)
	UpdateCompany(ctx context.Context, companyID id.CompanyID, req *models.UpdateCompanyRequest) (*models.Company, error)
	DeleteCompany(ctx context.Context, companyID id.CompanyID) error

	ListContacts(ctx context.Context, f models.ListFilter) (*models.Page[*models.Contact], error)
	GetContact(ctx context.Context, contactID id.ContactID) (*models.Contact, error)
	CreateContact(ctx context.Context, req *models.CreateContactRequest) (*models.Contact, error)
	UpdateContact(ctx context.Context, contactID id.ContactID, req *models.UpdateContactRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, contactID id.ContactID) error

	ListOpportunities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Opportunity], error)
	GetOpportunity(ctx context.Context, oppID id.OpportunityID) (*models.Opportunity, error)
	CreateOpportunity(ctx context.Context, req *models.CreateOpportunityRequest) (*models.Opportunity, error)
	UpdateOpportunity(ctx context.Context, oppID id.OpportunityID, req *models.UpdateOpportunityRequest) (*models.Opportunity, error)
	DeleteOpportunity(ctx context.Context, oppID id.OpportunityID) error
	Pipeline(ctx context.Context) ([]models.PipelineStage, error)

	ListActivities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Activity], error)
	GetActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	CreateActivity(ctx context.Context, req *models.CreateActivityRequest) (*models.Activity, error)
	UpdateActivity(ctx context.Context, activityID id.ActivityID, req *models.UpdateActivityRequest) (*models.Activity, error)
	CompleteActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	DeleteActivity(ctx context.Context, activityID id.ActivityID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the CRM endpoints. r must already authenticate callers;
// each route is guarded by the permission of its resource and action.
func (h *Handler) Register(r chi.Router, guard middleware.Guard) {
	perm := func(resource, action string) func(http.Handler) http.Handler {
		return guard(authzmodels.PermissionCode(resource, action))
	}

	r.Route("/companies", func(r chi.Router) {
		r.With(perm(authzmodels.ResourceCompanies, authzmodels.ActionView)).Get("/", h.HandleListCompanies)
		r.With(perm(authzmodels.ResourceCompanies, authzmodels.ActionCreate)).Post("/", h.HandleCreateCompany)
		r.With(perm(authzmodels.ResourceCompanies, authzmodels.ActionView)).Get("/{id}/", h.HandleGetCompany)
		r.With(perm(authzmodels.ResourceCompanies, authzmodels.ActionUpdate)).Patch("/{id}/", h.HandleUpdateCompany)
		r.With(perm(authzmodels.ResourceCompanies, authzmodels.ActionDelete)).Delete("/{id}/", h.HandleDeleteCompany)
	})
	r.Route("/contacts", func(r chi.Router) {
		r.With(perm(authzmodels.ResourceContacts, authzmodels.ActionView)).Get("/", h.HandleListContacts)
		r.With(perm(authzmodels.ResourceContacts, authzmodels.ActionCreate)).Post("/", h.HandleCreateContact)
		r.With(perm(authzmodels.ResourceContacts, authzmodels.ActionView)).Get("/{id}/", h.HandleGetContact)
		r.With(perm(authzmodels.ResourceContacts, authzmodels.ActionUpdate)).Patch("/{id}/", h.HandleUpdateContact)
		r.With(perm(authzmodels.ResourceContacts, authzmodels.ActionDelete)).Delete("/{id}/", h.HandleDeleteContact)
	})
	r.Route("/opportunities", func(r chi.Router) {
		r.With(perm(authzmodels.ResourceOpportunities, authzmodels.ActionView)).Get("/", h.HandleListOpportunities)
		r.With(perm(authzmodels.ResourceOpportunities, authzmodels.ActionCreate)).Post("/", h.HandleCreateOpportunity)
		r.With(perm(authzmodels.ResourceOpportunities, authzmodels.ActionView)).Get("/pipeline/", h.HandlePipeline)
		r.With(perm(authzmodels.ResourceOpportunities, authzmodels.ActionView)).Get("/{id}/", h.HandleGetOpportunity)
		r.With(perm(authzmodels.ResourceOpportunities, authzmodels.ActionUpdate)).Patch("/{id}/", h.HandleUpdateOpportunity)
		r.With(perm(authzmodels.ResourceOpportunities, authzmodels.ActionDelete)).Delete("/{id}/", h.HandleDeleteOpportunity)
	})
	r.Route("/activities", func(r chi.Router) {
		r.With(perm(authzmodels.ResourceActivities, authzmodels.ActionView)).Get("/", h.HandleListActivities)
		r.With(perm(authzmodels.ResourceActivities, authzmodels.ActionCreate)).Post("/", h.HandleCreateActivity)
		r.With(perm(authzmodels.ResourceActivities, authzmodels.ActionView)).Get("/{id}/", h.HandleGetActivity)
		r.With(perm(authzmodels.ResourceActivities, authzmodels.ActionUpdate)).Patch("/{id}/", h.HandleUpdateActivity)
		r.With(perm(authzmodels.ResourceActivities, authzmodels.ActionUpdate)).Post("/{id}/complete/", h.HandleCompleteActivity)
		r.With(perm(authzmodels.ResourceActivities, authzmodels.ActionDelete)).Delete("/{id}/", h.HandleDeleteActivity)
	})
}

// listFilter reads limit, offset and search from the query string.
func listFilter(r *http.Request) (models.ListFilter, error) {
	limit, offset, err := httputil.ParsePage(r)
	if err != nil {
		return models.ListFilter{}, err
	}
	f := models.ListFilter{Limit: limit, Offset: offset, Search: r.URL.Query().Get("search")}
	if err := f.Normalize(); err != nil {
		return models.ListFilter{}, err
	}
	return f, nil
}

func writeList[M, R any](h *Handler, w http.ResponseWriter, r *http.Request, what string,
	list func(context.Context, models.ListFilter) (*models.Page[M], error), conv func(M) R) {
	ctx := r.Context()
	f, err := listFilter(r)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}
	page, err := list(ctx, f)
	if err != nil {
		h.logger.ErrorContext(ctx, "list "+what+" failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToListResponse(page, f, conv))
}

// idParam parses the {id} path segment; a malformed id is a 400, never a 404.
func idParam[T any](w http.ResponseWriter, r *http.Request, noun string, parse func(string) (T, error)) (T, bool) {
	v, err := parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(r.Context(), w, dErrors.New(dErrors.CodeBadRequest, "invalid "+noun+" id"))
		var zero T
		return zero, false
	}
	return v, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	h.logger.WarnContext(ctx, action+" failed", "error", err, "request_id", request.GetRequestID(ctx))
	httputil.WriteError(ctx, w, err)
}

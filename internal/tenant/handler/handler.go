package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clientiq/internal/tenant/models"
	"clientiq/internal/tenant/service"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	"clientiq/pkg/platform/middleware/admin"
	request "clientiq/pkg/platform/middleware/request"
)

// Service defines the interface for tenant directory operations.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	CreateTenant(ctx context.Context, cmd service.CreateTenantCommand) (*models.Tenant, error)
	GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	ChangeDomain(ctx context.Context, tenantID id.TenantID, domain string) (*models.Tenant, error)
}

// Handler serves the platform tenant administration API. Mount it behind
// admin.PlatformOnly and admin.RequireAdminToken.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/platform/tenants", h.HandleCreateTenant)
	r.Get("/platform/tenants", h.HandleListTenants)
	r.Get("/platform/tenants/{id}", h.HandleGetTenant)
	r.Post("/platform/tenants/{id}/deactivate", h.HandleDeactivateTenant)
	r.Put("/platform/tenants/{id}/domain", h.HandleChangeDomain)
}

// HandleCreateTenant onboards a tenant: directory rows, schema and seed data.
func (h *Handler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.service.CreateTenant(ctx, service.CreateTenantCommand{
		Name:   req.Name,
		Schema: req.Schema,
		Domain: req.Domain,
		Admin:  req.InitialAdmin(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "create tenant failed", "error", err, "request_id", requestID)
		httputil.WriteError(ctx, w, err)
		return
	}
	h.audit(ctx, "tenant created", tenant)

	httputil.WriteSuccess(ctx, w, http.StatusCreated, toTenantResponse(tenant))
}

func (h *Handler) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenants, err := h.service.ListTenants(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list tenants failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(ctx, w, err)
		return
	}

	out := &TenantListResponse{Tenants: make([]*TenantResponse, 0, len(tenants)), Count: len(tenants)}
	for _, t := range tenants {
		out.Tenants = append(out.Tenants, toTenantResponse(t))
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantIDParam(w, r)
	if !ok {
		return
	}

	tenant, err := h.service.GetTenant(ctx, tenantID)
	if err != nil {
		h.logger.WarnContext(ctx, "get tenant failed", "error", err, "request_id", request.GetRequestID(ctx), "tenant_id", tenantID)
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, toTenantResponse(tenant))
}

// HandleDeactivateTenant soft-deletes a tenant; its subdomain stops resolving.
func (h *Handler) HandleDeactivateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantIDParam(w, r)
	if !ok {
		return
	}

	tenant, err := h.service.DeactivateTenant(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "deactivate tenant failed", "error", err, "request_id", request.GetRequestID(ctx), "tenant_id", tenantID)
		httputil.WriteError(ctx, w, err)
		return
	}
	h.audit(ctx, "tenant deactivated", tenant)

	httputil.WriteSuccess(ctx, w, http.StatusOK, toTenantResponse(tenant))
}

func (h *Handler) HandleChangeDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	tenantID, ok := h.tenantIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ChangeDomainRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.service.ChangeDomain(ctx, tenantID, req.Domain)
	if err != nil {
		h.logger.ErrorContext(ctx, "change domain failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(ctx, w, err)
		return
	}
	h.audit(ctx, "tenant domain changed", tenant)

	httputil.WriteSuccess(ctx, w, http.StatusOK, toTenantResponse(tenant))
}

// audit records who changed the directory. The actor comes from the admin
// middleware and is empty when the operator did not name themselves.
func (h *Handler) audit(ctx context.Context, msg string, t *models.Tenant) {
	h.logger.InfoContext(ctx, msg,
		"tenant_id", t.ID.String(),
		"schema", t.Schema,
		"domain", t.Domain,
		"actor", admin.ActorID(ctx),
		"request_id", request.GetRequestID(ctx),
	)
}

func (h *Handler) tenantIDParam(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(r.Context(), w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

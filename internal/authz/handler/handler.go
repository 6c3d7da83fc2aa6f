package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clientiq/internal/authz/middleware"
	"clientiq/internal/authz/models"
	"clientiq/internal/authz/service"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
	"clientiq/pkg/validation"
)

// Service defines the role management operations used by the handler.
type Service interface {
	ListPermissions() []models.Permission
	ListRoles(ctx context.Context) ([]*models.Role, error)
	GetRole(ctx context.Context, roleID id.RoleID) (*models.Role, error)
	CreateRole(ctx context.Context, cmd service.CreateRoleCommand) (*models.Role, error)
	SetPermissions(ctx context.Context, roleID id.RoleID, codes []string) (*models.Role, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the role endpoints. r must already authenticate callers.
func (h *Handler) Register(r chi.Router, guard middleware.Guard) {
	r.With(guard(models.PermUsersView)).Get("/permissions/", h.HandleListPermissions)
	r.With(guard(models.PermUsersView)).Get("/roles/", h.HandleListRoles)
	r.With(guard(models.PermRolesManage)).Post("/roles/", h.HandleCreateRole)
	r.With(guard(models.PermUsersView)).Get("/roles/{id}/", h.HandleGetRole)
	r.With(guard(models.PermRolesManage)).Put("/roles/{id}/permissions/", h.HandleSetPermissions)
}

type PermissionResponse struct {
	Code        string `json:"code"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func toRoleResponse(r *models.Role) *RoleResponse {
	return &RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
	}
}

type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"notblank,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"max=64"`
}

func (r *CreateRoleRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateRoleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"max=64"`
}

func (r *SetPermissionsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func (h *Handler) HandleListPermissions(w http.ResponseWriter, r *http.Request) {
	catalog := h.service.ListPermissions()
	out := make([]PermissionResponse, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, PermissionResponse(p))
	}
	httputil.WriteSuccess(r.Context(), w, http.StatusOK, out)
}

func (h *Handler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roles, err := h.service.ListRoles(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list roles failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(ctx, w, err)
		return
	}
	out := make([]*RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roleID, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetRole(ctx, roleID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) HandleCreateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	role, err := h.service.CreateRole(ctx, service.CreateRoleCommand{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create role failed", "error", err, "request_id", requestID)
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) HandleSetPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	roleID, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SetPermissionsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	role, err := h.service.SetPermissions(ctx, roleID, req.Permissions)
	if err != nil {
		h.logger.WarnContext(ctx, "set role permissions failed", "error", err, "request_id", requestID, "role_id", roleID)
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) roleIDParam(w http.ResponseWriter, r *http.Request) (id.RoleID, bool) {
	roleID, err := id.ParseRoleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(r.Context(), w, dErrors.New(dErrors.CodeBadRequest, "invalid role id"))
		return id.RoleID{}, false
	}
	return roleID, true
}

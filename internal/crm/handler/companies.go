package handler

import (
	"net/http"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
)

func (h *Handler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	writeList(h, w, r, "companies", h.service.ListCompanies, models.ToCompanyResponse)
}

func (h *Handler) HandleGetCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID, ok := idParam(w, r, "company", id.ParseCompanyID)
	if !ok {
		return
	}
	c, err := h.service.GetCompany(ctx, companyID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToCompanyResponse(c))
}

func (h *Handler) HandleCreateCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateCompanyRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.CreateCompany(ctx, req)
	if err != nil {
		h.fail(ctx, w, "create company", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusCreated, models.ToCompanyResponse(c))
}

func (h *Handler) HandleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID, ok := idParam(w, r, "company", id.ParseCompanyID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateCompanyRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.UpdateCompany(ctx, companyID, req)
	if err != nil {
		h.fail(ctx, w, "update company", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToCompanyResponse(c))
}

func (h *Handler) HandleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID, ok := idParam(w, r, "company", id.ParseCompanyID)
	if !ok {
		return
	}
	if err := h.service.DeleteCompany(ctx, companyID); err != nil {
		h.fail(ctx, w, "delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

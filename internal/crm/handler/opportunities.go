package handler

import (
	"net/http"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
)

func (h *Handler) HandleListOpportunities(w http.ResponseWriter, r *http.Request) {
	writeList(h, w, r, "opportunities", h.service.ListOpportunities, models.ToOpportunityResponse)
}

func (h *Handler) HandleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	oppID, ok := idParam(w, r, "opportunity", id.ParseOpportunityID)
	if !ok {
		return
	}
	o, err := h.service.GetOpportunity(ctx, oppID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToOpportunityResponse(o))
}

func (h *Handler) HandleCreateOpportunity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateOpportunityRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	o, err := h.service.CreateOpportunity(ctx, req)
	if err != nil {
		h.fail(ctx, w, "create opportunity", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusCreated, models.ToOpportunityResponse(o))
}

func (h *Handler) HandleUpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	oppID, ok := idParam(w, r, "opportunity", id.ParseOpportunityID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateOpportunityRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	o, err := h.service.UpdateOpportunity(ctx, oppID, req)
	if err != nil {
		h.fail(ctx, w, "update opportunity", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToOpportunityResponse(o))
}

func (h *Handler) HandleDeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	oppID, ok := idParam(w, r, "opportunity", id.ParseOpportunityID)
	if !ok {
		return
	}
	if err := h.service.DeleteOpportunity(ctx, oppID); err != nil {
		h.fail(ctx, w, "delete opportunity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandlePipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stages, err := h.service.Pipeline(ctx)
	if err != nil {
		h.fail(ctx, w, "pipeline", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToPipelineResponse(stages))
}

package handler

import (
	"net/http"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
)

func (h *Handler) HandleListActivities(w http.ResponseWriter, r *http.Request) {
	writeList(h, w, r, "activities", h.service.ListActivities, models.ToActivityResponse)
}

func (h *Handler) HandleGetActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID, ok := idParam(w, r, "activity", id.ParseActivityID)
	if !ok {
		return
	}
	a, err := h.service.GetActivity(ctx, activityID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToActivityResponse(a))
}

func (h *Handler) HandleCreateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateActivityRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.CreateActivity(ctx, req)
	if err != nil {
		h.fail(ctx, w, "create activity", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusCreated, models.ToActivityResponse(a))
}

func (h *Handler) HandleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID, ok := idParam(w, r, "activity", id.ParseActivityID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateActivityRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.UpdateActivity(ctx, activityID, req)
	if err != nil {
		h.fail(ctx, w, "update activity", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToActivityResponse(a))
}

func (h *Handler) HandleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID, ok := idParam(w, r, "activity", id.ParseActivityID)
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(ctx, activityID); err != nil {
		h.fail(ctx, w, "delete activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCompleteActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID, ok := idParam(w, r, "activity", id.ParseActivityID)
	if !ok {
		return
	}
	a, err := h.service.CompleteActivity(ctx, activityID)
	if err != nil {
		h.fail(ctx, w, "complete activity", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToActivityResponse(a))
}

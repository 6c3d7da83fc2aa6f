package handler

import (
	"net/http"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
)

func (h *Handler) HandleListContacts(w http.ResponseWriter, r *http.Request) {
	writeList(h, w, r, "contacts", h.service.ListContacts, models.ToContactResponse)
}

func (h *Handler) HandleGetContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contactID, ok := idParam(w, r, "contact", id.ParseContactID)
	if !ok {
		return
	}
	c, err := h.service.GetContact(ctx, contactID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToContactResponse(c))
}

func (h *Handler) HandleCreateContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateContactRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.CreateContact(ctx, req)
	if err != nil {
		h.fail(ctx, w, "create contact", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusCreated, models.ToContactResponse(c))
}

func (h *Handler) HandleUpdateContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contactID, ok := idParam(w, r, "contact", id.ParseContactID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateContactRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.UpdateContact(ctx, contactID, req)
	if err != nil {
		h.fail(ctx, w, "update contact", err)
		return
	}
	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToContactResponse(c))
}

func (h *Handler) HandleDeleteContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contactID, ok := idParam(w, r, "contact", id.ParseContactID)
	if !ok {
		return
	}
	if err := h.service.DeleteContact(ctx, contactID); err != nil {
		h.fail(ctx, w, "delete contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

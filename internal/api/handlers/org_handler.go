package handlers

import (
	"encoding/json"
	"net/http"

	"muralhub/internal/api/middleware"
	"muralhub/internal/engine/organizations"
	"muralhub/internal/pkg/errors"
)

type OrgHandler struct {
	orgSvc *organizations.Service
}

func NewOrgHandler(orgSvc *organizations.Service) *OrgHandler {
	return &OrgHandler{orgSvc: orgSvc}
}

func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgSvc.Get(r.Context(), param(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, org)
}

func (h *OrgHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req organizations.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	org, err := h.orgSvc.UpdateLinks(r.Context(), param(r, "slug"), claims.UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, org)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"muralhub/internal/api/middleware"
	"muralhub/internal/engine/claims"
	"muralhub/internal/pkg/errors"
)

type ClaimsHandler struct {
	claimsSvc *claims.Service
}

func NewClaimsHandler(claimsSvc *claims.Service) *ClaimsHandler {
	return &ClaimsHandler{claimsSvc: claimsSvc}
}

type CheckRequest struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
}

type CheckResponse struct {
	Allowed bool        `json:"allowed"`
	Outcome claims.Kind `json:"outcome"`
	IsNew   bool        `json:"is_new"`
}

// Check answers whether the signup form may proceed with this name and
// email. Blocked and rejected outcomes come back as errors.
func (h *ClaimsHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	outcome, err := h.claimsSvc.CheckClaim(r.Context(), req.OrganizationName, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if outcome.Kind == claims.KindRejected {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, outcome.Message, nil)
		return
	}
	if err := outcome.Err(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, CheckResponse{
		Allowed: outcome.Permitted(),
		Outcome: outcome.Kind,
		IsNew:   outcome.IsNew,
	})
}

type CheckNameResponse struct {
	Status claims.NameStatus `json:"status"`
}

func (h *ClaimsHandler) CheckName(w http.ResponseWriter, r *http.Request) {
	user := middleware.ClaimsFromContext(r.Context())

	status, err := h.claimsSvc.CheckName(r.Context(), r.URL.Query().Get("name"), user.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, CheckNameResponse{Status: status})
}

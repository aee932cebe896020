package handlers

import (
	stderrors "errors"
	"net/http"

	"muralhub/internal/api/middleware"
	"muralhub/internal/engine/organizations"
	"muralhub/internal/pkg/errors"
)

type UserHandler struct {
	orgSvc *organizations.Service
}

func NewUserHandler(orgSvc *organizations.Service) *UserHandler {
	return &UserHandler{orgSvc: orgSvc}
}

type DeleteAccountResponse struct {
	OrganizationsTransferred int64 `json:"organizations_transferred"`
}

// DeleteMe deletes the signed-in account. Owned organizations pass to the
// fallback admin.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	moved, err := h.orgSvc.DeleteAccount(r.Context(), claims.UserID)
	if stderrors.Is(err, organizations.ErrNoFallbackAdmin) {
		errors.WriteError(w, http.StatusServiceUnavailable, errors.ErrCodeInternal, "Account deletion is unavailable", nil)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, DeleteAccountResponse{OrganizationsTransferred: moved})
}

package handlers

import (
	"net/http"
	"strconv"

	"muralhub/internal/engine/organizations"
	"muralhub/internal/pkg/errors"
	"muralhub/internal/platform/audit"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type AuditHandler struct {
	orgSvc   *organizations.Service
	auditLog *audit.Logger
}

func NewAuditHandler(orgSvc *organizations.Service, auditLog *audit.Logger) *AuditHandler {
	return &AuditHandler{orgSvc: orgSvc, auditLog: auditLog}
}

// List returns the audit trail of one organization, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgSvc.Get(r.Context(), param(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "limit must be a positive integer", nil)
			return
		}
		if n > maxAuditLimit {
			n = maxAuditLimit
		}
		limit = n
	}

	logs, err := h.auditLog.ListByResource(r.Context(), audit.ResourceOrganization, org.ID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*audit.AuditLog{}
	}

	errors.WriteJSON(w, http.StatusOK, logs)
}

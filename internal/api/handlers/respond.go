package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	apiContext "muralhub/internal/api/context"
	"muralhub/internal/engine/claims"
	"muralhub/internal/engine/organizations"
	"muralhub/internal/pkg/errors"
)

func param(r *http.Request, name string) string {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params.ByName(name)
}

// writeServiceError maps engine errors onto the JSON error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var blocked *claims.BlockedError
	var invalid *organizations.InvalidInputError

	switch {
	case stderrors.As(err, &blocked):
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeBlocked, blocked.Message, errors.ContactDetails{ContactURL: blocked.ContactURL})
	case stderrors.As(err, &invalid):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, invalid.Error(), nil)
	case stderrors.Is(err, claims.ErrNameRequired):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, claims.MsgNameRequired, nil)
	case stderrors.Is(err, claims.ErrNameTaken):
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, claims.MsgNameTaken, nil)
	case stderrors.Is(err, organizations.ErrAccountExists):
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "User already exists", nil)
	case stderrors.Is(err, organizations.ErrNotFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Organization not found", nil)
	case stderrors.Is(err, claims.ErrUserNotFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "User not found", nil)
	case stderrors.Is(err, organizations.ErrForbidden):
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
	}
}

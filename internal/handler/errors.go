package handler

import (
	"errors"
	"net/http"

	"dpmeschat/internal/domain"
	"dpmeschat/internal/httputil"
)

// handleError maps domain errors onto the failure envelope.
func (h *ChatHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondFailure(w, http.StatusNotFound, "Page not found!")
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondFailure(w, http.StatusUnauthorized, "Authentication required!")
	default:
		h.logger.Error("request failed", "error", err)
		httputil.RespondFailure(w, http.StatusInternalServerError, "Something went wrong!")
	}
}

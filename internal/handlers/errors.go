package handlers

import (
	"errors"
	"net/http"

	"policy-engine/internal/models"
)

// mapDomainError translates the service error taxonomy to an HTTP status and
// a stable error code for clients.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, models.ErrAlreadyDecided):
		return http.StatusConflict, "ALREADY_DECIDED"
	case errors.Is(err, models.ErrInvalidStateTransition):
		return http.StatusConflict, "INVALID_STATE_TRANSITION"
	case errors.Is(err, models.ErrDataUnavailable):
		return http.StatusNotFound, "DATA_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"policy-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("reason missing: %w", models.ErrValidation), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"already decided", fmt.Errorf("claim x: %w", models.ErrAlreadyDecided), http.StatusConflict, "ALREADY_DECIDED"},
		{"invalid transition", fmt.Errorf("policy y: %w", models.ErrInvalidStateTransition), http.StatusConflict, "INVALID_STATE_TRANSITION"},
		{"data unavailable", fmt.Errorf("farm z: %w", models.ErrDataUnavailable), http.StatusNotFound, "DATA_UNAVAILABLE"},
		{"unknown error", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := mapDomainError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

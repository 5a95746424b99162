package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"posbackend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"insufficient stock", apperr.InsufficientStock("Widget", 1, 3), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK", "Insufficient stock for Widget. Available: 1, Requested: 3"},
		{"invalid transition", apperr.InvalidTransition("sale", "voided", "refund"), http.StatusConflict, "INVALID_STATE_TRANSITION", "cannot refund sale with status voided"},
		{"not found", fmt.Errorf("lookup: %w", apperr.NotFound("product")), http.StatusNotFound, "NOT_FOUND", "product not found"},
		{"validation", apperr.Validation("items is required"), http.StatusBadRequest, "VALIDATION", "items is required"},
		{"conflict", apperr.New(apperr.KindConflict, "sku already exists"), http.StatusConflict, "CONFLICT", "sku already exists"},
		{"forbidden", apperr.New(apperr.KindForbidden, "no"), http.StatusForbidden, "FORBIDDEN", "no"},
		{"unclassified", errors.New("pq: password authentication failed"), http.StatusInternalServerError, "INTERNAL", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Error)
		})
	}
}

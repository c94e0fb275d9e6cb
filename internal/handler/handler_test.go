package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"kart-checkout/internal/model"
	"kart-checkout/internal/payment"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        (&model.ValidationError{}).Add("email", "required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidationFailed,
		},
		{
			name: "inventory",
			err: &model.InventoryError{Issues: []model.LineIssue{
				{ProductID: "P1", Reason: model.ReasonInsufficientStock, Requested: 3, Available: 1},
			}},
			wantStatus: http.StatusConflict,
			wantCode:   model.ErrCodeInventoryUnavailable,
		},
		{
			name:       "gateway",
			err:        &payment.GatewayError{Op: "create_session", Kind: payment.KindTimeout},
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodePaymentGateway,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("lookup: %w", model.ErrOrderNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   model.ErrCodeOrderNotFound,
		},
		{name: "empty cart", err: model.ErrEmptyCart, wantStatus: http.StatusBadRequest, wantCode: model.ErrCodeEmptyCart},
		{name: "missing cart", err: model.ErrMissingCart, wantStatus: http.StatusBadRequest, wantCode: model.ErrCodeMissingCart},
		{name: "item not found", err: model.ErrItemNotFound, wantStatus: http.StatusNotFound, wantCode: model.ErrCodeItemNotFound},
		{name: "already paid", err: model.ErrAlreadyPaid, wantStatus: http.StatusConflict, wantCode: model.ErrCodeAlreadyPaid},
		{name: "not seller", err: model.ErrNotOrderSeller, wantStatus: http.StatusForbidden, wantCode: model.ErrCodeNotOrderSeller},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: model.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err, zerolog.Nop())

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestWriteServiceError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	writeServiceError(w, (&model.ValidationError{}).Add("zipcode", "required"), zerolog.Nop())

	var resp struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "required", resp.Details["zipcode"])
}

func TestWithQuery(t *testing.T) {
	assert.Equal(t, "/done?order_number=JB1", withQuery("/done", "order_number", "JB1"))
	assert.Equal(t, "/done?x=1&order_number=JB1", withQuery("/done?x=1", "order_number", "JB1"))
}

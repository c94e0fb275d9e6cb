package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testOrderResponse(id uuid.UUID, status model.OrderStatus) *model.OrderResponse {
	return &model.OrderResponse{
		Order: &model.Order{
			ID:          id,
			OrderNumber: "JB20250101001",
			Status:      status,
			TotalAmount: decimal.RequireFromString("25.00"),
		},
		Items: []model.OrderItem{{ID: uuid.New(), OrderID: id, ProductID: "P1", Quantity: 2, Status: model.ItemPending}},
	}
}

func TestOrderHandler_GetByID(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name           string
		path           string
		mockReturn     *model.OrderResponse
		mockError      error
		expectMock     bool
		expectedStatus int
	}{
		{
			name:           "found",
			path:           "/api/orders/" + orderID.String(),
			mockReturn:     testOrderResponse(orderID, model.OrderPending),
			expectMock:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not found",
			path:           "/api/orders/" + orderID.String(),
			mockError:      model.ErrOrderNotFound,
			expectMock:     true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid id",
			path:           "/api/orders/not-a-uuid",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			if tt.expectMock {
				svc.On("GetByID", mock.Anything, orderID).Return(tt.mockReturn, tt.mockError)
			}

			h := NewOrderHandler(svc, zerolog.Nop())
			w := httptest.NewRecorder()
			route("GET /api/orders/{id}", h.GetByID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.mockReturn != nil {
				var resp model.OrderResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "JB20250101001", resp.Order.OrderNumber)
				assert.Len(t, resp.Items, 1)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_UpdateItemStatus(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()
	sellerID := uuid.New()
	path := "/api/orders/" + orderID.String() + "/items/" + itemID.String() + "/status"
	pattern := "PUT /api/orders/{id}/items/{itemID}/status"

	t.Run("seller update", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("UpdateItemStatus", mock.Anything, orderID, itemID, model.ItemShipped, &sellerID).
			Return(testOrderResponse(orderID, model.OrderShipped), nil)

		h := NewOrderHandler(svc, zerolog.Nop())
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"status":"shipped"}`))
		req.Header.Set(SellerHeader, sellerID.String())
		w := httptest.NewRecorder()
		route(pattern, h.UpdateItemStatus).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unrestricted update", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("UpdateItemStatus", mock.Anything, orderID, itemID, model.ItemDelivered, (*uuid.UUID)(nil)).
			Return(testOrderResponse(orderID, model.OrderDelivered), nil)

		h := NewOrderHandler(svc, zerolog.Nop())
		w := httptest.NewRecorder()
		route(pattern, h.UpdateItemStatus).ServeHTTP(w, httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"status":"delivered"}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("service errors", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{model.ErrInvalidStatus, http.StatusBadRequest},
			{model.ErrItemNotFound, http.StatusNotFound},
			{model.ErrNotOrderSeller, http.StatusForbidden},
		}
		for _, tt := range tests {
			svc := new(MockOrderService)
			svc.On("UpdateItemStatus", mock.Anything, orderID, itemID, model.ItemStatus("lost"), (*uuid.UUID)(nil)).Return(nil, tt.err)

			h := NewOrderHandler(svc, zerolog.Nop())
			w := httptest.NewRecorder()
			route(pattern, h.UpdateItemStatus).ServeHTTP(w, httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"status":"lost"}`)))

			assert.Equal(t, tt.want, w.Code, tt.err.Error())
		}
	})

	t.Run("bad seller header", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewOrderHandler(svc, zerolog.Nop())
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"status":"shipped"}`))
		req.Header.Set(SellerHeader, "seller-1")
		w := httptest.NewRecorder()
		route(pattern, h.UpdateItemStatus).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "UpdateItemStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_Cancel(t *testing.T) {
	orderID := uuid.New()
	svc := new(MockOrderService)
	svc.On("CancelOrder", mock.Anything, orderID, (*uuid.UUID)(nil)).
		Return(testOrderResponse(orderID, model.OrderCancelled), nil)

	h := NewOrderHandler(svc, zerolog.Nop())
	w := httptest.NewRecorder()
	route("POST /api/orders/{id}/cancel", h.Cancel).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/cancel", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.OrderCancelled, resp.Order.Status)
	svc.AssertExpectations(t)
}

func TestOrderHandler_MarkPaid(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name           string
		mockReturn     *model.OrderResponse
		mockError      error
		expectedStatus int
	}{
		{name: "paid", mockReturn: testOrderResponse(orderID, model.OrderDelivered), expectedStatus: http.StatusOK},
		{name: "already paid", mockError: model.ErrAlreadyPaid, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			svc.On("MarkPaid", mock.Anything, orderID).Return(tt.mockReturn, tt.mockError)

			h := NewOrderHandler(svc, zerolog.Nop())
			w := httptest.NewRecorder()
			route("POST /api/orders/{id}/mark-paid", h.MarkPaid).
				ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/mark-paid", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

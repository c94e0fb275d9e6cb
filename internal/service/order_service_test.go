package service

import (
	"context"
	"errors"
	"testing"

	"kart-checkout/internal/ledger"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_GetByID(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	tests := []struct {
		name        string
		order       *model.Order
		items       []model.OrderItem
		repoErr     error
		expectedErr error
	}{
		{
			name:  "found",
			order: &model.Order{ID: orderID, OrderNumber: "JB20240301001"},
			items: []model.OrderItem{{ID: uuid.New(), OrderID: orderID, ProductID: "P1", Quantity: 1}},
		},
		{
			name:        "not found",
			expectedErr: model.ErrOrderNotFound,
		},
		{
			name:    "repository error",
			repoErr: errors.New("database error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOrderRepository)
			svc := NewOrderService(repo, new(MockLedger), &recordingDispatcher{}, zerolog.Nop())

			if tt.order != nil {
				repo.On("GetByID", ctx, orderID).Return(tt.order, tt.items, nil)
			} else {
				repo.On("GetByID", ctx, orderID).Return(nil, nil, tt.repoErr)
			}

			resp, err := svc.GetByID(ctx, orderID)

			switch {
			case tt.expectedErr != nil:
				assert.ErrorIs(t, err, tt.expectedErr)
			case tt.repoErr != nil:
				assert.ErrorContains(t, err, "failed to get order")
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.order, resp.Order)
				assert.Len(t, resp.Items, 1)
			}
		})
	}
}

func TestOrderService_UpdateItemStatus_DispatchesTransition(t *testing.T) {
	ctx := context.Background()
	orderID, itemID := uuid.New(), uuid.New()
	sellerID := uuid.New()

	l := new(MockLedger)
	events := &recordingDispatcher{}
	svc := NewOrderService(new(MockOrderRepository), l, events, zerolog.Nop())

	order := &model.Order{ID: orderID, Status: model.OrderShipped}
	l.On("UpdateItemStatus", ctx, orderID, itemID, model.ItemShipped, &sellerID).Return(&ledger.Receipt{
		Order:  order,
		Events: ledger.Transition(order, model.OrderConfirmed, model.OrderShipped),
	}, nil)

	resp, err := svc.UpdateItemStatus(ctx, orderID, itemID, model.ItemShipped, &sellerID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, resp.Order.Status)
	assert.Equal(t, []model.EventType{model.EventOrderStatusChanged}, events.types())
}

func TestOrderService_LedgerErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	l := new(MockLedger)
	events := &recordingDispatcher{}
	svc := NewOrderService(new(MockOrderRepository), l, events, zerolog.Nop())

	l.On("MarkPaid", ctx, orderID).Return(nil, model.ErrAlreadyPaid)
	l.On("CancelOrder", ctx, orderID, (*uuid.UUID)(nil)).Return(nil, model.ErrOrderNotFound)

	_, err := svc.MarkPaid(ctx, orderID)
	assert.ErrorIs(t, err, model.ErrAlreadyPaid)

	_, err = svc.CancelOrder(ctx, orderID, nil)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	assert.Empty(t, events.types())
}

func TestOrderService_ListForReview(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo, new(MockLedger), &recordingDispatcher{}, zerolog.Nop())

	repo.On("ListRequiringReview", ctx, 100).Return([]model.Order{{ID: uuid.New(), RequiresReview: true}}, nil)

	orders, err := svc.ListForReview(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

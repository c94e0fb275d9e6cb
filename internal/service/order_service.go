package service

import (
	"context"
	"fmt"

	"kart-checkout/internal/model"
	"kart-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	ledger    OrderLedger
	events    EventDispatcher
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	ledger OrderLedger,
	events EventDispatcher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		ledger:    ledger,
		events:    events,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// GetByID retrieves an order by its ID with all items.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return &model.OrderResponse{Order: order, Items: items}, nil
}

// UpdateItemStatus changes one item's status and dispatches the resulting
// order status events.
func (s *orderService) UpdateItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status model.ItemStatus, sellerID *uuid.UUID) (*model.OrderResponse, error) {
	receipt, err := s.ledger.UpdateItemStatus(ctx, orderID, itemID, status, sellerID)
	if err != nil {
		return nil, err
	}
	s.events.Dispatch(receipt.Events...)
	return toResponse(receipt), nil
}

// CancelOrder cancels an order and all its items.
func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID) (*model.OrderResponse, error) {
	receipt, err := s.ledger.CancelOrder(ctx, orderID, sellerID)
	if err != nil {
		return nil, err
	}
	s.events.Dispatch(receipt.Events...)
	return toResponse(receipt), nil
}

// MarkPaid records payment of a cash-on-delivery order.
func (s *orderService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error) {
	receipt, err := s.ledger.MarkPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toResponse(receipt), nil
}

// ListForReview returns orders flagged for operator review.
func (s *orderService) ListForReview(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	orders, err := s.orderRepo.ListRequiringReview(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for review: %w", err)
	}
	return orders, nil
}

package ledger

import (
	"context"

	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AggregateStatus derives an order's status from its items. All cancelled
// yields cancelled; otherwise the furthest non-cancelled item status wins.
// A confirmed order whose items are all still pending stays confirmed.
func AggregateStatus(current model.OrderStatus, items []model.OrderItem) model.OrderStatus {
	if len(items) == 0 {
		return current
	}

	furthest := -1
	for _, item := range items {
		if r := item.Status.Rank(); r > furthest {
			furthest = r
		}
	}

	switch furthest {
	case -1:
		return model.OrderCancelled
	case model.ItemPending.Rank():
		if current == model.OrderConfirmed {
			return model.OrderConfirmed
		}
		return model.OrderPending
	case model.ItemProcessing.Rank():
		return model.OrderProcessing
	case model.ItemShipped.Rank():
		return model.OrderShipped
	default:
		return model.OrderDelivered
	}
}

// Transition returns the events caused by moving order from prev to next.
func Transition(order *model.Order, prev, next model.OrderStatus) []model.Event {
	if prev == next {
		return nil
	}
	ev := model.NewEvent(model.EventOrderStatusChanged, order, nil)
	ev.PreviousStatus = prev
	ev.NewStatus = next
	return []model.Event{ev}
}

// UpdateItemStatus sets one item's status and recomputes the order status
// from a fresh read of all items. When sellerID is set the item must belong
// to that seller.
func (l *Ledger) UpdateItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status model.ItemStatus, sellerID *uuid.UUID) (*Receipt, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	var receipt *Receipt
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		order, items, err := l.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}

		item := findItem(items, itemID)
		if item == nil {
			return model.ErrItemNotFound
		}
		if sellerID != nil && item.SellerID != *sellerID {
			return model.ErrNotOrderSeller
		}

		found, err := l.orders.UpdateItemStatus(ctx, tx, orderID, itemID, status)
		if err != nil {
			return err
		}
		if !found {
			return model.ErrItemNotFound
		}

		order, items, err = l.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}

		prev := order.Status
		next := AggregateStatus(prev, items)
		events := Transition(order, prev, next)
		if next != prev {
			order.Status = next
			order.UpdatedAt = l.now()
			if err := l.orders.UpdateOrder(ctx, tx, order); err != nil {
				return err
			}
		}

		receipt = &Receipt{Order: order, Items: items, Events: events}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("order_id", orderID.String()).
		Str("item_id", itemID.String()).
		Str("item_status", string(status)).
		Str("order_status", string(receipt.Order.Status)).
		Msg("order item status updated")

	return receipt, nil
}

// CancelOrder cancels an order and every item in it. Cancelling an already
// cancelled order is a no-op.
func (l *Ledger) CancelOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID) (*Receipt, error) {
	var receipt *Receipt
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		order, items, err := l.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if sellerID != nil && !hasSeller(items, *sellerID) {
			return model.ErrNotOrderSeller
		}

		prev := order.Status
		if prev == model.OrderCancelled {
			receipt = &Receipt{Order: order, Items: items}
			return nil
		}

		if err := l.orders.SetItemsStatus(ctx, tx, orderID, model.ItemCancelled); err != nil {
			return err
		}
		for i := range items {
			items[i].Status = model.ItemCancelled
		}

		order.Status = model.OrderCancelled
		order.UpdatedAt = l.now()
		if err := l.orders.UpdateOrder(ctx, tx, order); err != nil {
			return err
		}

		receipt = &Receipt{Order: order, Items: items, Events: Transition(order, prev, order.Status)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().Str("order_id", orderID.String()).Msg("order cancelled")
	return receipt, nil
}

// MarkPaid records payment of a cash-on-delivery order. paid is written once.
func (l *Ledger) MarkPaid(ctx context.Context, orderID uuid.UUID) (*Receipt, error) {
	var receipt *Receipt
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		order, items, err := l.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if order.Paid {
			return model.ErrAlreadyPaid
		}

		order.Paid = true
		order.UpdatedAt = l.now()
		if err := l.orders.UpdateOrder(ctx, tx, order); err != nil {
			return err
		}

		receipt = &Receipt{Order: order, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().Str("order_id", orderID.String()).Msg("order marked as paid")
	return receipt, nil
}

// ResolveReview closes a shortfall review once the buyer has been refunded.
// The order and its items are cancelled and note is appended to the reason.
func (l *Ledger) ResolveReview(ctx context.Context, orderID uuid.UUID, note string) (*Receipt, error) {
	var receipt *Receipt
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		order, items, err := l.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if !order.RequiresReview {
			return model.ErrReviewNotRequired
		}

		if err := l.orders.SetItemsStatus(ctx, tx, orderID, model.ItemCancelled); err != nil {
			return err
		}
		for i := range items {
			items[i].Status = model.ItemCancelled
		}

		prev := order.Status
		reason := "resolved: " + note
		if prevReason := deref(order.ReviewReason); prevReason != "" {
			reason = prevReason + " | " + reason
		}
		order.RequiresReview = false
		order.ReviewReason = &reason
		order.Status = model.OrderCancelled
		order.UpdatedAt = l.now()
		if err := l.orders.UpdateOrder(ctx, tx, order); err != nil {
			return err
		}

		receipt = &Receipt{Order: order, Items: items, Events: Transition(order, prev, order.Status)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().Str("order_id", orderID.String()).Msg("order review resolved")
	return receipt, nil
}

func findItem(items []model.OrderItem, id uuid.UUID) *model.OrderItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func hasSeller(items []model.OrderItem, sellerID uuid.UUID) bool {
	for _, item := range items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"kart-checkout/internal/cart"
	"kart-checkout/internal/inventory"
	"kart-checkout/internal/model"
	"kart-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PlaceDirect creates an unpaid cash-on-delivery order. Inventory is checked
// against locked product rows and stock is decremented in the same
// transaction; the cart is emptied on success.
func (l *Ledger) PlaceDirect(ctx context.Context, in CreateInput) (*Receipt, error) {
	if len(in.Lines) == 0 {
		return nil, model.ErrEmptyCart
	}

	var receipt *Receipt
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		products, err := l.products.LockByIDs(ctx, tx, cart.ProductIDs(in.Lines))
		if err != nil {
			return err
		}

		if issues := inventory.Check(in.Lines, products); len(issues) > 0 {
			return &model.InventoryError{Issues: issues}
		}

		order := l.newOrder(in.Customer, model.PaymentCOD, in.Total)
		order.Status = model.OrderPending
		items := buildItems(order, in.Lines, products)

		if err := l.create(ctx, tx, order, items); err != nil {
			return err
		}
		if err := l.decrementStock(ctx, tx, in.Lines); err != nil {
			return err
		}
		if in.CartID != "" {
			if err := l.carts.Clear(ctx, tx, in.CartID); err != nil {
				return err
			}
		}

		receipt = &Receipt{Order: order, Items: items, Events: placedEvents(order, items)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("order_id", receipt.Order.ID.String()).
		Str("order_number", receipt.Order.OrderNumber).
		Str("payment_method", string(model.PaymentCOD)).
		Msg("order placed")

	return receipt, nil
}

// Materialize turns the pending order identified by token into a paid order.
// It must only be called after the gateway has confirmed payment. Exactly
// one caller creates the order; every other caller gets AlreadyProcessed.
//
// When stock has run out since payment the order is still created, flagged
// for review, and no stock is decremented.
func (l *Ledger) Materialize(ctx context.Context, token string) (*Receipt, error) {
	var receipt *Receipt
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		pending, err := l.pending.LockByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if pending == nil {
			receipt = &Receipt{AlreadyProcessed: true}
			return nil
		}

		products, err := l.products.LockByIDs(ctx, tx, cart.ProductIDs(pending.Lines))
		if err != nil {
			return err
		}
		issues := inventory.Check(pending.Lines, products)

		order := l.newOrder(pending.Customer, model.PaymentOnline, pending.Total)
		order.Paid = true
		order.Status = model.OrderConfirmed
		order.PaymentRef = &pending.Token
		if pending.GatewayOrderRef != "" {
			ref := pending.GatewayOrderRef
			order.GatewayOrderRef = &ref
		}
		if len(issues) > 0 {
			reason := shortfallReason(issues)
			order.RequiresReview = true
			order.ReviewReason = &reason
		}
		items := buildItems(order, pending.Lines, products)

		if err := l.create(ctx, tx, order, items); err != nil {
			if errors.Is(err, repository.ErrDuplicatePaymentRef) {
				receipt = &Receipt{AlreadyProcessed: true}
			}
			return err
		}
		if len(issues) == 0 {
			if err := l.decrementStock(ctx, tx, pending.Lines); err != nil {
				return err
			}
		}
		if err := l.pending.DeleteTx(ctx, tx, token); err != nil {
			return err
		}
		if err := l.carts.Clear(ctx, tx, pending.CartID); err != nil {
			return err
		}

		events := placedEvents(order, items)
		if len(issues) > 0 {
			ev := model.NewEvent(model.EventInventoryShortfall, order, items)
			ev.Issues = issues
			events = append(events, ev)
		}
		receipt = &Receipt{Order: order, Items: items, Events: events, Shortfall: issues}
		return nil
	})
	if err != nil {
		if receipt != nil && receipt.AlreadyProcessed {
			return l.alreadyProcessed(ctx, token)
		}
		return nil, err
	}

	if receipt.AlreadyProcessed {
		return l.alreadyProcessed(ctx, token)
	}

	evt := l.logger.Info()
	if len(receipt.Shortfall) > 0 {
		evt = l.logger.Warn().Int("shortfall_lines", len(receipt.Shortfall))
	}
	evt.Str("order_id", receipt.Order.ID.String()).
		Str("order_number", receipt.Order.OrderNumber).
		Str("payment_ref", token).
		Msg("paid order materialized")

	return receipt, nil
}

func (l *Ledger) alreadyProcessed(ctx context.Context, token string) (*Receipt, error) {
	l.logger.Info().Str("payment_ref", token).Msg("payment already processed")

	order, err := l.orders.GetByPaymentRef(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Receipt{Order: order, AlreadyProcessed: true}, nil
}

func (l *Ledger) newOrder(customer model.Customer, method model.PaymentMethod, total decimal.Decimal) *model.Order {
	now := l.now()
	return &model.Order{
		ID:            uuid.New(),
		Customer:      customer,
		PaymentMethod: method,
		TotalAmount:   total.Round(2),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// create inserts order and items. The order number is the day's order count
// plus one; on a collision the insert is retried inside a savepoint with the
// next sequence.
func (l *Ledger) create(ctx context.Context, tx pgx.Tx, order *model.Order, items []model.OrderItem) error {
	count, err := l.orders.CountOrdersOn(ctx, tx, order.CreatedAt)
	if err != nil {
		return err
	}

	inserted := false
	for attempt := 0; attempt < maxNumberAttempts && !inserted; attempt++ {
		order.OrderNumber = FormatOrderNumber(l.prefix, order.CreatedAt, count+1+attempt)

		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to open savepoint: %w", err)
		}

		err = l.orders.CreateOrder(ctx, sp, order)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			_ = sp.Rollback(ctx)
			l.logger.Debug().Str("order_number", order.OrderNumber).Msg("order number taken, retrying")
			continue
		}
		if err != nil {
			_ = sp.Rollback(ctx)
			return err
		}
		if err := sp.Commit(ctx); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		inserted = true
	}

	if !inserted {
		return model.ErrOrderNumberExhausted
	}

	return l.orders.CreateOrderItems(ctx, tx, items)
}

func (l *Ledger) decrementStock(ctx context.Context, tx pgx.Tx, lines []model.CartLine) error {
	for _, line := range lines {
		if err := l.products.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return &model.InventoryError{Issues: []model.LineIssue{{
					ProductID: line.ProductID,
					Name:      line.Name,
					Reason:    model.ReasonInsufficientStock,
					Requested: line.Quantity,
				}}}
			}
			return err
		}
	}
	return nil
}

// buildItems creates one pending item per line, freezing the snapshot price.
// Seller and name come from the product when it still exists.
func buildItems(order *model.Order, lines []model.CartLine, products []model.Product) []model.OrderItem {
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Status:      model.ItemPending,
		}
		if p, ok := byID[line.ProductID]; ok {
			item.SellerID = p.SellerID
			if item.ProductName == "" {
				item.ProductName = p.Name
			}
		}
		items = append(items, item)
	}
	return items
}

// placedEvents returns an order.placed event plus one seller.new_order event
// per seller with that seller's items.
func placedEvents(order *model.Order, items []model.OrderItem) []model.Event {
	events := []model.Event{model.NewEvent(model.EventOrderPlaced, order, items)}

	bySeller := make(map[uuid.UUID][]model.OrderItem)
	var sellers []uuid.UUID
	for _, item := range items {
		if item.SellerID == uuid.Nil {
			continue
		}
		if _, ok := bySeller[item.SellerID]; !ok {
			sellers = append(sellers, item.SellerID)
		}
		bySeller[item.SellerID] = append(bySeller[item.SellerID], item)
	}
	sort.Slice(sellers, func(i, j int) bool { return sellers[i].String() < sellers[j].String() })

	for _, id := range sellers {
		sellerID := id
		ev := model.NewEvent(model.EventSellerNewOrder, order, bySeller[id])
		ev.SellerID = &sellerID
		events = append(events, ev)
	}
	return events
}

func shortfallReason(issues []model.LineIssue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.String())
	}
	return "inventory shortfall after payment: " + strings.Join(parts, "; ")
}

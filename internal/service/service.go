package service

import (
	"context"

	"kart-checkout/internal/ledger"
	"kart-checkout/internal/model"
	"kart-checkout/internal/payment"

	"github.com/google/uuid"
)

// ProductService defines read access to the purchasable catalog.
type ProductService interface {
	// List retrieves approved, available products with pagination.
	List(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CartService manages the buyer's cart.
type CartService interface {
	// View returns the cart lines and subtotal.
	View(ctx context.Context, cartID string) (*model.CartView, error)

	// Add puts a product in the cart, capturing its current price.
	Add(ctx context.Context, cartID string, req *model.AddCartItemRequest) (*model.CartLine, error)

	// Remove deletes a product from the cart.
	Remove(ctx context.Context, cartID, productID string) error
}

// CheckoutService turns a cart into a payment session or a COD order.
type CheckoutService interface {
	// Checkout validates the request and routes it by payment method.
	Checkout(ctx context.Context, cartID string, req *model.CheckoutRequest) (*model.CheckoutResult, error)
}

// Reconciler decides what happens to a pending online payment.
type Reconciler interface {
	// Reconcile verifies ref with the gateway and applies the result.
	Reconcile(ctx context.Context, ref string, source model.SignalSource) (*model.ReconcileResult, error)

	// Sweep re-verifies and clears pending orders past their expiry.
	Sweep(ctx context.Context, limit int) (*model.SweepReport, error)

	// RefundShortfall refunds a paid order flagged for review and resolves it.
	RefundShortfall(ctx context.Context, orderID uuid.UUID) (*payment.Refund, error)
}

// OrderService defines operations on placed orders.
type OrderService interface {
	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// UpdateItemStatus changes one item and recomputes the order status.
	// A non-nil sellerID restricts the update to that seller's items.
	UpdateItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status model.ItemStatus, sellerID *uuid.UUID) (*model.OrderResponse, error)

	// CancelOrder cancels the order and all its items.
	CancelOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID) (*model.OrderResponse, error)

	// MarkPaid records payment of a cash-on-delivery order.
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error)

	// ListForReview returns paid orders that could not be fulfilled.
	ListForReview(ctx context.Context, limit int) ([]model.Order, error)
}

// OrderLedger is the transactional order store.
type OrderLedger interface {
	PlaceDirect(ctx context.Context, in ledger.CreateInput) (*ledger.Receipt, error)
	Materialize(ctx context.Context, token string) (*ledger.Receipt, error)
	UpdateItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status model.ItemStatus, sellerID *uuid.UUID) (*ledger.Receipt, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID) (*ledger.Receipt, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*ledger.Receipt, error)
	ResolveReview(ctx context.Context, orderID uuid.UUID, note string) (*ledger.Receipt, error)
}

// InventoryValidator runs the advisory inventory check.
type InventoryValidator interface {
	Validate(ctx context.Context, lines []model.CartLine) error
}

// EventDispatcher delivers committed domain events to notifiers.
type EventDispatcher interface {
	Dispatch(events ...model.Event)
}

// ReconcileObserver records reconciliation outcomes.
type ReconcileObserver interface {
	ObserveReconcile(source model.SignalSource, outcome model.Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveReconcile(model.SignalSource, model.Outcome) {}

func toResponse(r *ledger.Receipt) *model.OrderResponse {
	return &model.OrderResponse{Order: r.Order, Items: r.Items}
}

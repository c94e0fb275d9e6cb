package repository

import (
	"context"
	"time"

	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// ListPurchasable retrieves approved, available products with pagination support.
	ListPurchasable(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs reads the current state of multiple products. Missing IDs are
	// simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// LockByIDs reads products with SELECT ... FOR UPDATE inside tx, in
	// ascending ID order.
	LockByIDs(ctx context.Context, tx pgx.Tx, ids []string) ([]model.Product, error)

	// DecrementStock subtracts qty from a product's stock. It returns
	// ErrInsufficientStock when the row would go negative.
	DecrementStock(ctx context.Context, tx pgx.Tx, id string, qty int) error

	// GetSeller retrieves a seller by ID.
	GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error)
}

// CartRepository stores cart lines keyed by cart ID.
type CartRepository interface {
	GetLines(ctx context.Context, cartID string) ([]model.CartLine, error)

	// AddLine inserts a line or adds to the quantity of an existing one. The
	// price captured by the first add is kept.
	AddLine(ctx context.Context, cartID string, line model.CartLine) (*model.CartLine, error)

	RemoveLine(ctx context.Context, cartID, productID string) (bool, error)

	// Clear empties the cart inside tx.
	Clear(ctx context.Context, tx pgx.Tx, cartID string) error
}

// PendingOrderRepository stores unconfirmed online checkouts.
type PendingOrderRepository interface {
	Create(ctx context.Context, p *model.PendingOrder) error

	// GetByToken returns nil, nil when no pending order exists.
	GetByToken(ctx context.Context, token string) (*model.PendingOrder, error)

	// LockByToken reads and row-locks a pending order inside tx. It returns
	// nil, nil when the row is gone.
	LockByToken(ctx context.Context, tx pgx.Tx, token string) (*model.PendingOrder, error)

	// Delete removes a pending order and reports whether a row was deleted.
	Delete(ctx context.Context, token string) (bool, error)

	DeleteTx(ctx context.Context, tx pgx.Tx, token string) error

	// ListExpired returns pending orders that are expired and due for a
	// sweep at now, least recently due first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.PendingOrder, error)

	// Postpone hides an expired pending order from ListExpired until the
	// given time.
	Postpone(ctx context.Context, token string, until time.Time) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction. Unique
	// violations are reported as ErrDuplicateOrderNumber or
	// ErrDuplicatePaymentRef.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// CountOrdersOn counts orders created on the calendar day of day (UTC).
	CountOrdersOn(ctx context.Context, tx pgx.Tx, day time.Time) (int, error)

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByPaymentRef returns the order materialized for a payment reference.
	GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error)

	// LockByID re-reads an order with FOR UPDATE together with its items.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// UpdateItemStatus sets one item's status and reports whether it exists.
	UpdateItemStatus(ctx context.Context, tx pgx.Tx, orderID, itemID uuid.UUID, status model.ItemStatus) (bool, error)

	// SetItemsStatus sets the status of every item of an order.
	SetItemsStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.ItemStatus) error

	// UpdateOrder writes the mutable order fields (status, paid, review).
	UpdateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// ListRequiringReview returns orders flagged for operator review.
	ListRequiringReview(ctx context.Context, limit int) ([]model.Order, error)
}

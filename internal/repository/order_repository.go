package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, order_number, first_name, last_name, email, phone, address, address2, city, state,
	zipcode, country, payment_method, payment_ref, gateway_order_ref, paid, order_status, total_amount,
	requires_review, review_reason, created_at, updated_at`

const itemColumns = `id, order_id, product_id, seller_id, product_name, unit_price, quantity, status`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	c := order.Customer
	_, err := tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Address,
		c.Address2,
		c.City,
		c.State,
		c.Zipcode,
		c.Country,
		order.PaymentMethod,
		order.PaymentRef,
		order.GatewayOrderRef,
		order.Paid,
		order.Status,
		order.TotalAmount,
		order.RequiresReview,
		order.ReviewReason,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			switch constraint {
			case constraintOrderNumber:
				return ErrDuplicateOrderNumber
			case constraintPaymentRef:
				return ErrDuplicatePaymentRef
			}
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.SellerID,
			item.ProductName,
			item.UnitPrice,
			item.Quantity,
			item.Status,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// CountOrdersOn counts orders created on the UTC calendar day of day.
func (r *orderRepository) CountOrdersOn(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var count int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2`,
		start, start.AddDate(0, 0, 1),
	).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to count daily orders")
		return 0, fmt.Errorf("failed to count daily orders: %w", err)
	}
	return count, nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.items(ctx, r.pool, id)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetByPaymentRef returns the order materialized for a payment reference.
func (r *orderRepository) GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_ref = $1`, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_ref", ref).Msg("failed to query order by payment ref")
		return nil, fmt.Errorf("failed to query order by payment ref: %w", err)
	}
	return order, nil
}

// LockByID re-reads an order with FOR UPDATE together with its items.
func (r *orderRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, nil, fmt.Errorf("failed to lock order: %w", err)
	}

	items, err := r.items(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// UpdateItemStatus sets one item's status and reports whether it exists.
func (r *orderRepository) UpdateItemStatus(ctx context.Context, tx pgx.Tx, orderID, itemID uuid.UUID, status model.ItemStatus) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE order_items SET status = $3, updated_at = NOW() WHERE order_id = $1 AND id = $2`,
		orderID, itemID, status)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Str("item_id", itemID.String()).
			Msg("failed to update item status")
		return false, fmt.Errorf("failed to update item status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetItemsStatus sets the status of every item of an order.
func (r *orderRepository) SetItemsStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.ItemStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE order_items SET status = $2, updated_at = NOW() WHERE order_id = $1`,
		orderID, status)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to update item statuses")
		return fmt.Errorf("failed to update item statuses: %w", err)
	}
	return nil
}

// UpdateOrder writes the mutable order fields.
func (r *orderRepository) UpdateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET order_status = $2, paid = $3, requires_review = $4, review_reason = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.Status,
		order.Paid,
		order.RequiresReview,
		order.ReviewReason,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// ListRequiringReview returns orders flagged for operator review, oldest first.
func (r *orderRepository) ListRequiringReview(ctx context.Context, limit int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE requires_review ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders for review")
		return nil, fmt.Errorf("failed to query orders for review: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *orderRepository) items(ctx context.Context, q querier, orderID uuid.UUID) ([]model.OrderItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY product_id, id`, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.SellerID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.Status,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	c := &o.Customer
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.Address2,
		&c.City,
		&c.State,
		&c.Zipcode,
		&c.Country,
		&o.PaymentMethod,
		&o.PaymentRef,
		&o.GatewayOrderRef,
		&o.Paid,
		&o.Status,
		&o.TotalAmount,
		&o.RequiresReview,
		&o.ReviewReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

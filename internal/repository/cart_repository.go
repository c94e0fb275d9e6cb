package repository

import (
	"context"
	"fmt"

	"kart-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) GetLines(ctx context.Context, cartID string) ([]model.CartLine, error) {
	query := `
		SELECT product_id, name, quantity, unit_price
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY product_id
	`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

func (r *cartRepository) AddLine(ctx context.Context, cartID string, line model.CartLine) (*model.CartLine, error) {
	query := `
		INSERT INTO cart_items (cart_id, product_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING product_id, name, quantity, unit_price
	`

	var saved model.CartLine
	err := r.pool.QueryRow(ctx, query, cartID, line.ProductID, line.Name, line.Quantity, line.UnitPrice).
		Scan(&saved.ProductID, &saved.Name, &saved.Quantity, &saved.UnitPrice)
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", cartID).
			Str("product_id", line.ProductID).
			Msg("failed to add cart line")
		return nil, fmt.Errorf("failed to add cart line: %w", err)
	}

	return &saved, nil
}

func (r *cartRepository) RemoveLine(ctx context.Context, cartID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID).Str("product_id", productID).Msg("failed to remove cart line")
		return false, fmt.Errorf("failed to remove cart line: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *cartRepository) Clear(ctx context.Context, tx pgx.Tx, cartID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

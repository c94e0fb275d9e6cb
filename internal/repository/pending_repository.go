package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kart-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const pendingColumns = `token, gateway_order_ref, payment_session_id, cart_id, customer, cart_lines, total, amount, created_at, expires_at`

type pendingOrderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPendingOrderRepository creates a new PostgreSQL-backed pending order store.
func NewPendingOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) PendingOrderRepository {
	return &pendingOrderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "pending_order").Logger(),
	}
}

func (r *pendingOrderRepository) Create(ctx context.Context, p *model.PendingOrder) error {
	query := `
		INSERT INTO pending_orders (` + pendingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		p.Token,
		p.GatewayOrderRef,
		p.PaymentSessionID,
		p.CartID,
		p.Customer,
		p.Lines,
		p.Total,
		p.Amount,
		p.CreatedAt,
		p.ExpiresAt,
	)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return ErrDuplicatePendingOrder
		}
		r.logger.Error().Err(err).Str("payment_ref", p.Token).Msg("failed to create pending order")
		return fmt.Errorf("failed to create pending order: %w", err)
	}

	r.logger.Debug().
		Str("payment_ref", p.Token).
		Time("expires_at", p.ExpiresAt).
		Msg("pending order stored")

	return nil
}

func (r *pendingOrderRepository) GetByToken(ctx context.Context, token string) (*model.PendingOrder, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_orders WHERE token = $1`
	return r.one(r.pool.QueryRow(ctx, query, token), token)
}

func (r *pendingOrderRepository) LockByToken(ctx context.Context, tx pgx.Tx, token string) (*model.PendingOrder, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_orders WHERE token = $1 FOR UPDATE`
	return r.one(tx.QueryRow(ctx, query, token), token)
}

func (r *pendingOrderRepository) Delete(ctx context.Context, token string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pending_orders WHERE token = $1`, token)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_ref", token).Msg("failed to delete pending order")
		return false, fmt.Errorf("failed to delete pending order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pendingOrderRepository) DeleteTx(ctx context.Context, tx pgx.Tx, token string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM pending_orders WHERE token = $1`, token); err != nil {
		r.logger.Error().Err(err).Str("payment_ref", token).Msg("failed to delete pending order")
		return fmt.Errorf("failed to delete pending order: %w", err)
	}
	return nil
}

func (r *pendingOrderRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.PendingOrder, error) {
	query := `
		SELECT ` + pendingColumns + `
		FROM pending_orders
		WHERE COALESCE(next_check_at, expires_at) <= $1
		ORDER BY COALESCE(next_check_at, expires_at), token
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query expired pending orders")
		return nil, fmt.Errorf("failed to query expired pending orders: %w", err)
	}
	defer rows.Close()

	var pending []model.PendingOrder
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending order: %w", err)
		}
		pending = append(pending, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending orders: %w", err)
	}

	return pending, nil
}

func (r *pendingOrderRepository) Postpone(ctx context.Context, token string, until time.Time) error {
	if _, err := r.pool.Exec(ctx, `UPDATE pending_orders SET next_check_at = $2 WHERE token = $1`, token, until); err != nil {
		r.logger.Error().Err(err).Str("payment_ref", token).Msg("failed to postpone pending order")
		return fmt.Errorf("failed to postpone pending order: %w", err)
	}
	return nil
}

func (r *pendingOrderRepository) one(row pgx.Row, token string) (*model.PendingOrder, error) {
	p, err := scanPending(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_ref", token).Msg("failed to query pending order")
		return nil, fmt.Errorf("failed to query pending order: %w", err)
	}
	return p, nil
}

func scanPending(row pgx.Row) (*model.PendingOrder, error) {
	var p model.PendingOrder
	err := row.Scan(
		&p.Token,
		&p.GatewayOrderRef,
		&p.PaymentSessionID,
		&p.CartID,
		&p.Customer,
		&p.Lines,
		&p.Total,
		&p.Amount,
		&p.CreatedAt,
		&p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

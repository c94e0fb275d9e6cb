// Package ledger owns every write to orders, order items and product stock.
// Each operation runs in one database transaction and returns the domain
// events the caller dispatches after commit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kart-checkout/internal/model"
	"kart-checkout/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxNumberAttempts bounds order number collision retries.
const maxNumberAttempts = 10

// Receipt is the result of a ledger operation.
type Receipt struct {
	Order *model.Order
	Items []model.OrderItem
	// Events are to be dispatched once the transaction has committed.
	Events []model.Event
	// AlreadyProcessed is set when another caller materialized the order first.
	AlreadyProcessed bool
	// Shortfall lists the lines that could not be fulfilled when the order
	// was materialized after payment.
	Shortfall []model.LineIssue
}

// CreateInput carries what is needed to place a cash-on-delivery order.
type CreateInput struct {
	CartID   string
	Customer model.Customer
	Lines    []model.CartLine
	Total    decimal.Decimal
}

// Ledger performs transactional order operations.
type Ledger struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	pending  repository.PendingOrderRepository
	carts    repository.CartRepository
	prefix   string
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a Ledger. prefix starts every order number.
func New(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	pending repository.PendingOrderRepository,
	carts repository.CartRepository,
	prefix string,
	logger zerolog.Logger,
) *Ledger {
	return &Ledger{
		orders:   orders,
		products: products,
		pending:  pending,
		carts:    carts,
		prefix:   prefix,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

// inTx runs fn in a transaction, committing when fn succeeds.
func (l *Ledger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := l.orders.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				l.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		l.logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FormatOrderNumber renders prefix + YYYYMMDD + a three digit daily sequence.
func FormatOrderNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s%s%03d", prefix, day.UTC().Format("20060102"), seq)
}

package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	constraintOrderNumber = "orders_order_number_key"
	constraintPaymentRef  = "orders_payment_ref_key"
)

var (
	// ErrDuplicateOrderNumber means the generated order number is taken.
	ErrDuplicateOrderNumber = errors.New("order number already exists")

	// ErrDuplicatePaymentRef means an order already exists for the payment reference.
	ErrDuplicatePaymentRef = errors.New("order already exists for payment reference")

	// ErrInsufficientStock means a guarded stock decrement matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicatePendingOrder means the pending order token is taken.
	ErrDuplicatePendingOrder = errors.New("pending order already exists")
)

// uniqueConstraint returns the violated constraint name when err is a
// PostgreSQL unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

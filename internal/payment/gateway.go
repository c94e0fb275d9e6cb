// Package payment talks to the external payment gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kart-checkout/internal/model"

	"github.com/shopspring/decimal"
)

// Status is the normalised state of a gateway order.
type Status string

const (
	StatusPaid      Status = "PAID"
	StatusPending   Status = "PENDING"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// ParseStatus maps a raw gateway order status onto Status.
func ParseStatus(raw string) (Status, bool) {
	switch raw {
	case "PAID":
		return StatusPaid, true
	case "ACTIVE", "PENDING":
		return StatusPending, true
	case "FAILED":
		return StatusFailed, true
	case "CANCELLED", "USER_DROPPED", "TERMINATED":
		return StatusCancelled, true
	case "EXPIRED":
		return StatusExpired, true
	default:
		return "", false
	}
}

// Gateway is the payment provider.
type Gateway interface {
	// CreateSession registers an order with the gateway and returns the
	// session the buyer is redirected to.
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)

	// Verify asks the gateway for the authoritative status of an order.
	Verify(ctx context.Context, orderRef string) (*Verification, error)

	// Refund returns money for a paid order.
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
}

// SessionRequest describes the payment the buyer is about to make.
type SessionRequest struct {
	OrderRef   string
	Amount     decimal.Decimal
	Currency   string
	CustomerID string
	Customer   model.Customer
	// ExpiresAt is when the gateway should stop accepting payment. Zero
	// leaves the gateway default.
	ExpiresAt time.Time
}

// Session is a created gateway payment session.
type Session struct {
	SessionID      string
	GatewayOrderID string
	RedirectURL    string
}

// Verification is the gateway's view of an order.
type Verification struct {
	OrderRef  string
	Status    Status
	RawStatus string
	Amount    decimal.Decimal
}

// RefundRequest asks the gateway to refund an order.
type RefundRequest struct {
	OrderRef string
	RefundID string
	Amount   decimal.Decimal
	Note     string
}

// Refund is an accepted refund.
type Refund struct {
	RefundID string
	Status   string
}

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "unavailable"
	KindRejected    ErrorKind = "rejected"
	KindNotFound    ErrorKind = "not_found"
	KindMalformed   ErrorKind = "malformed"
)

// GatewayError is returned for every failed gateway call.
type GatewayError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same call may succeed later.
func (e *GatewayError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindUnavailable
}

// IsRetryable reports whether err is a retryable gateway error.
func IsRetryable(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.Retryable()
}

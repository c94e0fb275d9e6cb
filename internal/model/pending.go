package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingOrder holds the checkout data for an online payment that has not
// been confirmed yet. It lives in its own table and never in orders.
type PendingOrder struct {
	Token            string          `json:"token" db:"token"`
	GatewayOrderRef  string          `json:"gatewayOrderRef" db:"gateway_order_ref"`
	PaymentSessionID string          `json:"paymentSessionId" db:"payment_session_id"`
	CartID           string          `json:"cartId" db:"cart_id"`
	Customer         Customer        `json:"customer" db:"customer"`
	Lines            []CartLine      `json:"lines" db:"cart_lines"`
	Total            decimal.Decimal `json:"total" db:"total"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	ExpiresAt        time.Time       `json:"expiresAt" db:"expires_at"`
}

// Expired reports whether the pending order is past its TTL at now.
func (p *PendingOrder) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// PaymentSession is returned to the buyer after a gateway session has been
// created. RedirectURL is where the browser continues the payment.
type PaymentSession struct {
	Token            string          `json:"token"`
	PaymentSessionID string          `json:"paymentSessionId"`
	RedirectURL      string          `json:"redirectUrl"`
	Amount           decimal.Decimal `json:"amount"`
	ExpiresAt        time.Time       `json:"expiresAt"`
}

// CheckoutResult is the outcome of a checkout submission. Exactly one of
// Session (online) or Order (cod) is set.
type CheckoutResult struct {
	Session *PaymentSession `json:"session,omitempty"`
	Order   *Order          `json:"order,omitempty"`
}

package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine is one product entry in a cart. UnitPrice is captured when the
// line is added and is never refreshed from the product afterwards.
type CartLine struct {
	ProductID string          `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
}

// Subtotal returns UnitPrice x Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// AddCartItemRequest is the payload for adding a product to a cart.
type AddCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartView is returned by the cart endpoints.
type CartView struct {
	CartID   string          `json:"cartId"`
	Lines    []CartLine      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// IssueReason classifies why a cart line cannot be fulfilled.
type IssueReason string

const (
	ReasonProductRemoved    IssueReason = "product_removed"
	ReasonNotAvailable      IssueReason = "not_available"
	ReasonNotApproved       IssueReason = "not_approved"
	ReasonInsufficientStock IssueReason = "insufficient_stock"
)

// LineIssue describes a single unfulfillable cart line.
type LineIssue struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name,omitempty"`
	Reason    IssueReason `json:"reason"`
	Requested int         `json:"requested,omitempty"`
	Available int         `json:"available,omitempty"`
}

func (i LineIssue) String() string {
	if i.Reason == ReasonInsufficientStock {
		return fmt.Sprintf("%s: %s (requested %d, available %d)", i.ProductID, i.Reason, i.Requested, i.Available)
	}
	return fmt.Sprintf("%s: %s", i.ProductID, i.Reason)
}

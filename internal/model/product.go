package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a sellable item owned by a seller.
type Product struct {
	ID        string          `json:"id" db:"id"`
	SellerID  uuid.UUID       `json:"sellerId" db:"seller_id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	Available bool            `json:"available" db:"available"`
	Approved  bool            `json:"approved" db:"approved"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Purchasable reports whether the product can be added to a cart at all.
func (p *Product) Purchasable() bool {
	return p.Available && p.Approved
}

// Seller owns products and fulfils their order items.
type Seller struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
}

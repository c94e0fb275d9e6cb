package model

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod selects how an order is paid.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

// OrderStatus is the aggregate status of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// ItemStatus is the fulfilment status of one order item.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemShipped    ItemStatus = "shipped"
	ItemDelivered  ItemStatus = "delivered"
	ItemCancelled  ItemStatus = "cancelled"
)

var itemStatusRank = map[ItemStatus]int{
	ItemPending:    0,
	ItemProcessing: 1,
	ItemShipped:    2,
	ItemDelivered:  3,
}

// Rank orders non-cancelled item statuses by fulfilment progress.
// Cancelled and unknown statuses return -1.
func (s ItemStatus) Rank() int {
	if r, ok := itemStatusRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	return s == ItemCancelled || s.Rank() >= 0
}

// Customer holds the shipping and contact details captured at checkout.
type Customer struct {
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Email     string `json:"email" db:"email"`
	Phone     string `json:"phone" db:"phone"`
	Address   string `json:"address" db:"address"`
	Address2  string `json:"address2,omitempty" db:"address2"`
	City      string `json:"city" db:"city"`
	State     string `json:"state" db:"state"`
	Zipcode   string `json:"zipcode" db:"zipcode"`
	Country   string `json:"country" db:"country"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate checks the required shipping fields.
func (c Customer) Validate() error {
	verr := &ValidationError{}
	required := map[string]string{
		"firstName": c.FirstName,
		"lastName":  c.LastName,
		"email":     c.Email,
		"phone":     c.Phone,
		"address":   c.Address,
		"city":      c.City,
		"state":     c.State,
		"zipcode":   c.Zipcode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			verr.Add(field, "required")
		}
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			verr.Add("email", "invalid email address")
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// Order represents a placed customer order.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	Customer        Customer        `json:"customer"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentRef      *string         `json:"paymentRef,omitempty" db:"payment_ref"`
	GatewayOrderRef *string         `json:"gatewayOrderRef,omitempty" db:"gateway_order_ref"`
	Paid            bool            `json:"paid" db:"paid"`
	Status          OrderStatus     `json:"status" db:"order_status"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	RequiresReview  bool            `json:"requiresReview" db:"requires_review"`
	ReviewReason    *string         `json:"reviewReason,omitempty" db:"review_reason"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	ProductID   string          `json:"productId" db:"product_id"`
	SellerID    uuid.UUID       `json:"sellerId" db:"seller_id"`
	ProductName string          `json:"productName" db:"product_name"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Status      ItemStatus      `json:"status" db:"status"`
}

// CheckoutRequest is the payload submitted by the buyer at checkout.
type CheckoutRequest struct {
	Customer      Customer      `json:"customer"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}

// UpdateItemStatusRequest is the payload for a seller item status change.
type UpdateItemStatusRequest struct {
	Status ItemStatus `json:"status"`
}

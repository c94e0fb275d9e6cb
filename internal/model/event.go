package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event emitted after an order transaction commits.
type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventSellerNewOrder     EventType = "seller.new_order"
	EventInventoryShortfall EventType = "inventory.shortfall"
)

// Event is a domain event. Only the fields relevant to Type are populated.
type Event struct {
	ID             uuid.UUID   `json:"id"`
	Type           EventType   `json:"type"`
	OccurredAt     time.Time   `json:"occurredAt"`
	Order          *Order      `json:"order,omitempty"`
	Items          []OrderItem `json:"items,omitempty"`
	SellerID       *uuid.UUID  `json:"sellerId,omitempty"`
	PreviousStatus OrderStatus `json:"previousStatus,omitempty"`
	NewStatus      OrderStatus `json:"newStatus,omitempty"`
	Issues         []LineIssue `json:"issues,omitempty"`
}

// NewEvent stamps a new event of type t for order.
func NewEvent(t EventType, order *Order, items []OrderItem) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Order:      order,
		Items:      items,
	}
}

// Key returns the partitioning key used when the event is published.
func (e Event) Key() string {
	if e.Order != nil {
		return e.Order.ID.String()
	}
	return e.ID.String()
}

// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of an order.
// Statuses move strictly forward along the enum order; the only allowed
// backward-looking move is cancellation, which may occur from any
// non-terminal state and is terminal thereafter.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// statusRank maps each forward status to its position in the lifecycle.
// Cancelled is deliberately absent; it sits outside the forward chain.
var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusPickedUp:  4,
	StatusDelivered: 5,
}

// Rank returns the position of the status in the forward lifecycle and
// whether the status belongs to the forward chain at all.
func (s OrderStatus) Rank() (int, bool) {
	rank, ok := statusRank[s]

	return rank, ok
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]

	return ok
}

// CanTransition reports whether an order may move from one status to
// another. Forward moves along the lifecycle are allowed; cancellation is
// allowed from any non-terminal state; everything else is rejected.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}

	fromRank, fromOK := from.Rank()
	toRank, toOK := to.Rank()
	if !fromOK || !toOK {
		return false
	}

	return toRank > fromRank
}

// OrderItem is a single line of an order.
type OrderItem struct {
	Name      string  `json:"name"`       // Display name of the menu item.
	UnitPrice float64 `json:"unit_price"` // Price per unit at order time.
	Quantity  int     `json:"quantity"`   // Number of units ordered, always >= 1.
}

// LineTotal returns price multiplied by quantity for this line.
func (i OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Order is the authoritative order record as seen by the gateway and
// mirrored into each session's local store.
type Order struct {
	ID             uuid.UUID   `json:"id"`                   // The Global Unique Identifier (GUID) for the order.
	CustomerID     uuid.UUID   `json:"customer_id"`          // The ID of the customer who placed the order.
	RestaurantID   uuid.UUID   `json:"restaurant_id"`        // The ID of the restaurant preparing the order.
	RestaurantName string      `json:"restaurant_name"`      // Denormalized restaurant name for display and search.
	CourierID      *uuid.UUID  `json:"courier_id,omitempty"` // Assigned delivery partner, nil until assignment.
	Status         OrderStatus `json:"status"`               // Current lifecycle status.
	Items          []OrderItem `json:"items"`                // Ordered lines.
	Subtotal       float64     `json:"subtotal"`             // Sum of line totals.
	Discount       float64     `json:"discount"`             // Discount applied to the subtotal.
	DeliveryFee    float64     `json:"delivery_fee"`         // Fee charged for delivery.
	Tax            float64     `json:"tax"`                  // Tax amount.
	Total          float64     `json:"total"`                // subtotal - discount + delivery fee + tax, never negative.
	CreatedAt      time.Time   `json:"created_at"`           // Timestamp of when the order was placed.
	UpdatedAt      time.Time   `json:"updated_at"`           // Timestamp of the last modification.
}

// RecomputeTotal rederives Subtotal and Total from the order lines and
// monetary fields. Total is clamped at zero.
func (o *Order) RecomputeTotal() {
	subtotal := 0.0
	for _, item := range o.Items {
		subtotal += item.LineTotal()
	}
	o.Subtotal = subtotal

	total := o.Subtotal - o.Discount + o.DeliveryFee + o.Tax
	if total < 0 {
		total = 0
	}
	o.Total = total
}

// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DeliveryTask is the delivery partner's projection of an order. Its
// lifecycle is tied 1:1 to the underlying order within the
// {ready, picked_up} status subset; outside that window the task does not
// exist from the courier's perspective.
type DeliveryTask struct {
	OrderID         uuid.UUID   `json:"order_id"`         // The order this task delivers.
	CourierID       uuid.UUID   `json:"courier_id"`       // The assigned delivery partner.
	RestaurantName  string      `json:"restaurant_name"`  // Denormalized restaurant name.
	Status          OrderStatus `json:"status"`           // Mirrors the order status (ready or picked_up).
	PickupAddress   string      `json:"pickup_address"`   // Human-readable pickup address.
	DeliveryAddress string      `json:"delivery_address"` // Human-readable dropoff address.
	PickupPoint     orb.Point   `json:"pickup_point"`     // Geographic pickup location (lon, lat).
	DeliveryPoint   orb.Point   `json:"delivery_point"`   // Geographic dropoff location (lon, lat).
	Total           float64     `json:"total"`            // Order total, shown to the courier.
	AssignedAt      time.Time   `json:"assigned_at"`      // Timestamp of courier assignment.
}

// DistanceMeters returns the great-circle distance between pickup and
// dropoff.
func (t DeliveryTask) DistanceMeters() float64 {
	return geo.Distance(t.PickupPoint, t.DeliveryPoint)
}

// Package usecase defines the application-layer interfaces of the
// gateway. Delivery layers depend on these interfaces, never on the
// implementations under impl.
package usecase

import (
	"context"

	"ordersync/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// PlaceOrderInput carries everything needed to place a new order.
type PlaceOrderInput struct {
	CustomerID     uuid.UUID
	RestaurantID   uuid.UUID
	RestaurantName string
	Items          []entity.OrderItem
	Discount       float64
	DeliveryFee    float64
	Tax            float64
}

// AssignCourierInput carries a courier assignment and the pickup and
// dropoff geography the delivery task projection needs.
type AssignCourierInput struct {
	OrderID         uuid.UUID
	CourierID       uuid.UUID
	PickupAddress   string
	DeliveryAddress string
	PickupPoint     orb.Point
	DeliveryPoint   orb.Point
}

// OrderUsecase defines the order lifecycle operations of the gateway.
// Every mutation persists first and then emits the matching lifecycle
// event for realtime fan-out.
type OrderUsecase interface {
	// PlaceOrder validates and persists a new order, emitting
	// order_created.
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*entity.Order, error)

	// GetOrder retrieves a single order.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error)

	// ListCustomerOrders retrieves a customer's orders, newest first.
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]*entity.Order, error)

	// ListRestaurantOrders retrieves a restaurant's orders, newest first.
	ListRestaurantOrders(ctx context.Context, restaurantID uuid.UUID) ([]*entity.Order, error)

	// ListCourierOrders retrieves a courier's assigned orders, newest
	// first.
	ListCourierOrders(ctx context.Context, courierID uuid.UUID) ([]*entity.Order, error)

	// TransitionStatus moves an order along its lifecycle, rejecting
	// transitions the lifecycle forbids.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, status entity.OrderStatus) (*entity.Order, error)

	// CancelOrder cancels a non-terminal order.
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error)

	// AssignCourier assigns a delivery partner and returns the courier's
	// delivery task projection.
	AssignCourier(ctx context.Context, input AssignCourierInput) (*entity.Order, *entity.DeliveryTask, error)

	// TrackingQR renders the shareable tracking QR code for an order.
	TrackingQR(ctx context.Context, orderID uuid.UUID) ([]byte, error)
}

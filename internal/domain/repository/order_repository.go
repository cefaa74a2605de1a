// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"ordersync/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrOrderNotFound is a domain-specific error returned when an order is not found.
var ErrOrderNotFound = errors.New("order not found")

// ErrOrderStatusConflict is returned when a guarded status update finds the
// order no longer in the expected status.
var ErrOrderStatusConflict = errors.New("order status changed concurrently")

// ErrCourierConflict is returned when a courier assignment loses the race to
// another courier.
var ErrCourierConflict = errors.New("order already has a courier")

// OrderRepository defines the standard operations for order persistence.
// The application layer will depend on this interface, not the concrete implementation.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *entity.Order) error

	// FindByID retrieves a single order by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)

	// ListByCustomer retrieves all orders placed by a customer, newest first.
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*entity.Order, error)

	// ListByRestaurant retrieves all orders for a restaurant, newest first.
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*entity.Order, error)

	// ListByCourier retrieves all orders assigned to a courier, newest first.
	ListByCourier(ctx context.Context, courierID uuid.UUID) ([]*entity.Order, error)

	// UpdateStatus moves an order from one status to another. The update is
	// guarded on the expected current status; ErrOrderStatusConflict is
	// returned when another writer got there first.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.OrderStatus) error

	// AssignCourier records the delivery partner assigned to an order. Only
	// an unassigned order can be claimed; ErrCourierConflict is returned
	// when another courier won the race.
	AssignCourier(ctx context.Context, id uuid.UUID, courierID uuid.UUID) error
}

// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"ordersync/internal/domain/entity"
	domainerrors "ordersync/internal/domain/errors"
	"ordersync/internal/domain/repository"
	"ordersync/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// orderRepository implements the domain.OrderRepository interface using GORM.
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository is the constructor for orderRepository.
// It returns the repository as a domain.OrderRepository interface, adhering to dependency inversion.
func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// Create persists a new order.
func (repo *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	orderM := fromOrderDomain(order)

	if err := repo.db.WithContext(ctx).Create(orderM).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrOrderCreationFailed.WrapMessage("order id already exists")
		}

		return errors.Wrap(err, "failed to create order")
	}

	order.CreatedAt = orderM.CreatedAt
	order.UpdatedAt = orderM.UpdatedAt

	return nil
}

// FindByID retrieves a single order by its unique ID.
func (repo *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var orderM model.OrderModel
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&orderM).Error
	if err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOrderNotFound
		}

		return nil, errors.Wrap(err, "failed to find order by id")
	}

	return toOrderDomain(&orderM), nil
}

// ListByCustomer retrieves all orders placed by a customer, newest first.
func (repo *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*entity.Order, error) {
	return repo.list(ctx, "customer_id = ?", customerID)
}

// ListByRestaurant retrieves all orders for a restaurant, newest first.
func (repo *orderRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*entity.Order, error) {
	return repo.list(ctx, "restaurant_id = ?", restaurantID)
}

// ListByCourier retrieves all orders assigned to a courier, newest first.
func (repo *orderRepository) ListByCourier(ctx context.Context, courierID uuid.UUID) ([]*entity.Order, error) {
	return repo.list(ctx, "courier_id = ?", courierID)
}

func (repo *orderRepository) list(ctx context.Context, cond string, arg any) ([]*entity.Order, error) {
	var models []model.OrderModel
	err := repo.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	orders := make([]*entity.Order, len(models))
	for i := range models {
		orders[i] = toOrderDomain(&models[i])
	}

	return orders, nil
}

// UpdateStatus moves an order from one status to another. The WHERE clause
// carries the expected current status, so two writers racing on the same
// order cannot both succeed: the loser updates zero rows.
func (repo *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.OrderStatus) error {
	result := repo.db.WithContext(ctx).
		Model(&model.OrderModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order status")
	}
	if result.RowsAffected == 0 {
		return repo.conflictOrNotFound(ctx, id, repository.ErrOrderStatusConflict)
	}

	return nil
}

// AssignCourier records the delivery partner assigned to an order. The WHERE
// clause only matches an unclaimed order, so at most one courier wins.
func (repo *orderRepository) AssignCourier(ctx context.Context, id uuid.UUID, courierID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.OrderModel{}).
		Where("id = ? AND courier_id IS NULL", id).
		Updates(map[string]any{
			"courier_id": courierID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to assign courier")
	}
	if result.RowsAffected == 0 {
		return repo.conflictOrNotFound(ctx, id, repository.ErrCourierConflict)
	}

	return nil
}

// conflictOrNotFound disambiguates a zero-row guarded update: a missing
// order is not-found, an existing one lost the optimistic race.
func (repo *orderRepository) conflictOrNotFound(ctx context.Context, id uuid.UUID, conflict error) error {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&model.OrderModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "failed to check order existence")
	}
	if count == 0 {
		return repository.ErrOrderNotFound
	}

	return conflict
}

// fromOrderDomain maps a pure domain entity to its GORM persistence model.
func fromOrderDomain(order *entity.Order) *model.OrderModel {
	items := make([]model.OrderItemJSON, len(order.Items))
	for i, item := range order.Items {
		items[i] = model.OrderItemJSON{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	return &model.OrderModel{
		ID:             order.ID,
		CustomerID:     order.CustomerID,
		RestaurantID:   order.RestaurantID,
		RestaurantName: order.RestaurantName,
		CourierID:      order.CourierID,
		Status:         string(order.Status),
		Items:          items,
		Subtotal:       order.Subtotal,
		Discount:       order.Discount,
		DeliveryFee:    order.DeliveryFee,
		Tax:            order.Tax,
		Total:          order.Total,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

// toOrderDomain maps the persistence model back to a pure domain entity.
func toOrderDomain(orderM *model.OrderModel) *entity.Order {
	items := make([]entity.OrderItem, len(orderM.Items))
	for i, item := range orderM.Items {
		items[i] = entity.OrderItem{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	return &entity.Order{
		ID:             orderM.ID,
		CustomerID:     orderM.CustomerID,
		RestaurantID:   orderM.RestaurantID,
		RestaurantName: orderM.RestaurantName,
		CourierID:      orderM.CourierID,
		Status:         entity.OrderStatus(orderM.Status),
		Items:          items,
		Subtotal:       orderM.Subtotal,
		Discount:       orderM.Discount,
		DeliveryFee:    orderM.DeliveryFee,
		Tax:            orderM.Tax,
		Total:          orderM.Total,
		CreatedAt:      orderM.CreatedAt,
		UpdatedAt:      orderM.UpdatedAt,
	}
}

// Package impl contains the concrete application services behind the
// usecase interfaces.
package impl

import (
	"context"
	"log/slog"
	"time"

	"ordersync/internal/domain/entity"
	domainerrors "ordersync/internal/domain/errors"
	"ordersync/internal/domain/event"
	"ordersync/internal/domain/repository"
	"ordersync/internal/domain/service"
	"ordersync/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type orderService struct {
	orderRepo     repository.OrderRepository
	publisher     service.EventPublisher
	qrcodeService service.QRCodeService
	logger        *slog.Logger
}

// OrderServiceParams holds dependencies for OrderService, injected by Fx.
type OrderServiceParams struct {
	fx.In

	OrderRepo     repository.OrderRepository
	Publisher     service.EventPublisher
	QRCodeService service.QRCodeService
	Logger        *slog.Logger
}

// NewOrderService creates a new order service instance
func NewOrderService(params OrderServiceParams) usecase.OrderUsecase {
	return &orderService{
		orderRepo:     params.OrderRepo,
		publisher:     params.Publisher,
		qrcodeService: params.QRCodeService,
		logger:        params.Logger,
	}
}

// PlaceOrder validates and persists a new order, emitting order_created
func (s *orderService) PlaceOrder(ctx context.Context, input usecase.PlaceOrderInput) (*entity.Order, error) {
	if len(input.Items) == 0 {
		return nil, domainerrors.ErrEmptyOrder
	}
	for _, item := range input.Items {
		if item.Quantity < 1 || item.UnitPrice < 0 {
			return nil, domainerrors.ErrValidationFailed.WithDetails("item quantity must be >= 1 and unit price >= 0")
		}
	}

	now := time.Now().UTC()
	order := &entity.Order{
		ID:             uuid.New(),
		CustomerID:     input.CustomerID,
		RestaurantID:   input.RestaurantID,
		RestaurantName: input.RestaurantName,
		Status:         entity.StatusPending,
		Items:          input.Items,
		Discount:       input.Discount,
		DeliveryFee:    input.DeliveryFee,
		Tax:            input.Tax,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	order.RecomputeTotal()

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, domainerrors.ErrOrderCreationFailed.WrapMessage(err.Error())
	}

	s.publish(ctx, event.TypeOrderCreated, order.ID, event.OrderCreatedPayload{Order: *order})

	return order, nil
}

// GetOrder retrieves a single order
func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domainerrors.ErrOrderNotFound
		}

		return nil, errors.Wrap(err, "failed to find order")
	}

	return order, nil
}

// ListCustomerOrders retrieves a customer's orders, newest first
func (s *orderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]*entity.Order, error) {
	orders, err := s.orderRepo.ListByCustomer(ctx, customerID)

	return orders, errors.Wrap(err, "failed to list customer orders")
}

// ListRestaurantOrders retrieves a restaurant's orders, newest first
func (s *orderService) ListRestaurantOrders(ctx context.Context, restaurantID uuid.UUID) ([]*entity.Order, error) {
	orders, err := s.orderRepo.ListByRestaurant(ctx, restaurantID)

	return orders, errors.Wrap(err, "failed to list restaurant orders")
}

// ListCourierOrders retrieves a courier's assigned orders, newest first
func (s *orderService) ListCourierOrders(ctx context.Context, courierID uuid.UUID) ([]*entity.Order, error) {
	orders, err := s.orderRepo.ListByCourier(ctx, courierID)

	return orders, errors.Wrap(err, "failed to list courier orders")
}

// TransitionStatus moves an order along its lifecycle
func (s *orderService) TransitionStatus(ctx context.Context, orderID uuid.UUID, status entity.OrderStatus) (*entity.Order, error) {
	if !status.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("unknown order status: " + string(status))
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() {
		return nil, domainerrors.ErrOrderAlreadyTerminal
	}
	if !entity.CanTransition(order.Status, status) {
		return nil, domainerrors.ErrInvalidStatusTransition.WithDetails(
			string(order.Status) + " -> " + string(status),
		)
	}
	if status == entity.StatusPickedUp {
		if order.CourierID == nil {
			return nil, domainerrors.ErrOrderNotReadyForPickup.WithDetails("no courier assigned")
		}
		if order.Status != entity.StatusReady {
			return nil, domainerrors.ErrOrderNotReadyForPickup
		}
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domainerrors.ErrOrderNotFound
		}
		if errors.Is(err, repository.ErrOrderStatusConflict) {
			return nil, domainerrors.ErrInvalidStatusTransition.WithDetails(
				"order changed concurrently",
			)
		}

		return nil, errors.Wrap(err, "failed to update order status")
	}

	order.Status = status
	order.UpdatedAt = time.Now().UTC()

	s.publish(ctx, statusEventType(status), orderID, event.StatusChangedPayload{Status: status})

	return order, nil
}

// CancelOrder cancels a non-terminal order
func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	return s.TransitionStatus(ctx, orderID, entity.StatusCancelled)
}

// AssignCourier assigns a delivery partner to an order
func (s *orderService) AssignCourier(ctx context.Context, input usecase.AssignCourierInput) (*entity.Order, *entity.DeliveryTask, error) {
	order, err := s.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, nil, err
	}

	if order.Status.IsTerminal() {
		return nil, nil, domainerrors.ErrOrderAlreadyTerminal
	}
	if order.CourierID != nil {
		return nil, nil, domainerrors.ErrCourierAlreadyAssigned
	}

	if err := s.orderRepo.AssignCourier(ctx, input.OrderID, input.CourierID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, nil, domainerrors.ErrOrderNotFound
		}
		if errors.Is(err, repository.ErrCourierConflict) {
			return nil, nil, domainerrors.ErrCourierAlreadyAssigned
		}

		return nil, nil, errors.Wrap(err, "failed to assign courier")
	}

	courierID := input.CourierID
	order.CourierID = &courierID
	order.UpdatedAt = time.Now().UTC()

	task := &entity.DeliveryTask{
		OrderID:         order.ID,
		CourierID:       input.CourierID,
		RestaurantName:  order.RestaurantName,
		Status:          order.Status,
		PickupAddress:   input.PickupAddress,
		DeliveryAddress: input.DeliveryAddress,
		PickupPoint:     input.PickupPoint,
		DeliveryPoint:   input.DeliveryPoint,
		Total:           order.Total,
		AssignedAt:      time.Now().UTC(),
	}

	s.publish(ctx, event.TypeDeliveryAssigned, order.ID, event.DeliveryAssignedPayload{
		CourierID: input.CourierID.String(),
		Task:      task,
	})

	return order, task, nil
}

// TrackingQR renders the shareable tracking QR code for an order
func (s *orderService) TrackingQR(ctx context.Context, orderID uuid.UUID) ([]byte, error) {
	// Confirm the order exists before minting a tracking code for it.
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	png, err := s.qrcodeService.GenerateTrackingQR(orderID)

	return png, errors.Wrap(err, "failed to generate tracking QR")
}

// statusEventType maps a status to the event type announcing it.
func statusEventType(status entity.OrderStatus) event.Type {
	switch status {
	case entity.StatusPickedUp:
		return event.TypeDeliveryPickedUp
	case entity.StatusDelivered:
		return event.TypeOrderDelivered
	case entity.StatusCancelled:
		return event.TypeOrderCancelled
	default:
		return event.TypeOrderStatusChanged
	}
}

// publish emits one lifecycle event. Emission is best-effort: the
// mutation is already persisted, so a publish failure is logged and the
// operation still succeeds. Clients reconcile over REST on reconnect.
func (s *orderService) publish(ctx context.Context, eventType event.Type, orderID uuid.UUID, payload any) {
	envelope, err := event.NewEnvelope(eventType, orderID.String(), 0, payload)
	if err != nil {
		s.logger.Error("failed to build event envelope",
			slog.String("event_type", string(eventType)),
			slog.String("order_id", orderID.String()),
			slog.Any("error", err),
		)

		return
	}

	if err := s.publisher.PublishOrderEvent(ctx, envelope); err != nil {
		s.logger.Error("failed to publish order event",
			slog.String("event_type", string(eventType)),
			slog.String("order_id", orderID.String()),
			slog.Any("error", err),
		)
	}
}

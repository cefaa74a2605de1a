// Package handler contains the REST handlers of the gateway API.
package handler

import (
	"net/http"
	"slices"

	"ordersync/internal/delivery/http/middleware"
	"ordersync/internal/delivery/http/response"
	"ordersync/internal/domain/entity"
	domainerrors "ordersync/internal/domain/errors"
	"ordersync/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"go.uber.org/fx"
)

// OrderHandler serves the order lifecycle endpoints.
type OrderHandler struct {
	orderUsecase usecase.OrderUsecase
}

// OrderHandlerParams holds dependencies for the OrderHandler.
type OrderHandlerParams struct {
	fx.In

	OrderUsecase usecase.OrderUsecase
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(params OrderHandlerParams) *OrderHandler {
	return &OrderHandler{orderUsecase: params.OrderUsecase}
}

type orderItemRequest struct {
	Name      string  `json:"name" validate:"required"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
}

type placeOrderRequest struct {
	RestaurantID   string             `json:"restaurant_id" validate:"required,uuid"`
	RestaurantName string             `json:"restaurant_name" validate:"required"`
	Items          []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount       float64            `json:"discount" validate:"gte=0"`
	DeliveryFee    float64            `json:"delivery_fee" validate:"gte=0"`
	Tax            float64            `json:"tax" validate:"gte=0"`
}

// PlaceOrder handles POST /orders.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	principalID, err := principalFromContext(c)
	if err != nil {
		return err
	}

	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_REQUEST", "Failed to parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		return response.BadRequest(c, "INVALID_RESTAURANT_ID", "Restaurant id must be a UUID")
	}

	items := make([]entity.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = entity.OrderItem{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	order, err := h.orderUsecase.PlaceOrder(c.Request().Context(), usecase.PlaceOrderInput{
		CustomerID:     principalID,
		RestaurantID:   restaurantID,
		RestaurantName: req.RestaurantName,
		Items:          items,
		Discount:       req.Discount,
		DeliveryFee:    req.DeliveryFee,
		Tax:            req.Tax,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, order, "Order placed")
}

// ListOrders handles GET /orders. The caller's role decides which view
// of the order table it gets.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	principalID, err := principalFromContext(c)
	if err != nil {
		return err
	}
	roles, _ := c.Get(middleware.ContextKeyRoles).([]string)

	ctx := c.Request().Context()

	var orders []*entity.Order
	switch {
	case slices.Contains(roles, entity.RoleRestaurant.String()):
		orders, err = h.orderUsecase.ListRestaurantOrders(ctx, principalID)
	case slices.Contains(roles, entity.RoleCourier.String()):
		orders, err = h.orderUsecase.ListCourierOrders(ctx, principalID)
	default:
		orders, err = h.orderUsecase.ListCustomerOrders(ctx, principalID)
	}
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, orders, "")
}

// GetOrder handles GET /orders/:id.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.authorizedOrder(c)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, order, "")
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PATCH /orders/:id/status.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	order, err := h.authorizedOrder(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_REQUEST", "Failed to parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.orderUsecase.TransitionStatus(c.Request().Context(), order.ID, entity.OrderStatus(req.Status))
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, updated, "Order status updated")
}

// Cancel handles POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c echo.Context) error {
	order, err := h.authorizedOrder(c)
	if err != nil {
		return err
	}

	cancelled, err := h.orderUsecase.CancelOrder(c.Request().Context(), order.ID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, cancelled, "Order cancelled")
}

type assignCourierRequest struct {
	PickupAddress   string  `json:"pickup_address" validate:"required"`
	DeliveryAddress string  `json:"delivery_address" validate:"required"`
	PickupLat       float64 `json:"pickup_lat" validate:"gte=-90,lte=90"`
	PickupLng       float64 `json:"pickup_lng" validate:"gte=-180,lte=180"`
	DeliveryLat     float64 `json:"delivery_lat" validate:"gte=-90,lte=90"`
	DeliveryLng     float64 `json:"delivery_lng" validate:"gte=-180,lte=180"`
}

// AssignCourier handles POST /orders/:id/courier. The calling courier
// assigns themselves to the order.
func (h *OrderHandler) AssignCourier(c echo.Context) error {
	principalID, err := principalFromContext(c)
	if err != nil {
		return err
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req assignCourierRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_REQUEST", "Failed to parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, task, err := h.orderUsecase.AssignCourier(c.Request().Context(), usecase.AssignCourierInput{
		OrderID:         orderID,
		CourierID:       principalID,
		PickupAddress:   req.PickupAddress,
		DeliveryAddress: req.DeliveryAddress,
		PickupPoint:     orb.Point{req.PickupLng, req.PickupLat},
		DeliveryPoint:   orb.Point{req.DeliveryLng, req.DeliveryLat},
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"order": order,
		"task":  task,
	}, "Courier assigned")
}

// TrackingQR handles GET /orders/:id/qrcode, returning a PNG.
func (h *OrderHandler) TrackingQR(c echo.Context) error {
	order, err := h.authorizedOrder(c)
	if err != nil {
		return err
	}

	png, err := h.orderUsecase.TrackingQR(c.Request().Context(), order.ID)
	if err != nil {
		return err
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// authorizedOrder loads the order and enforces that the caller is one
// of its participants.
func (h *OrderHandler) authorizedOrder(c echo.Context) (*entity.Order, error) {
	principalID, err := principalFromContext(c)
	if err != nil {
		return nil, err
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return nil, err
	}

	order, err := h.orderUsecase.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != principalID && order.RestaurantID != principalID &&
		(order.CourierID == nil || *order.CourierID != principalID) {
		return nil, domainerrors.ErrOrderOwnershipViolation
	}

	return order, nil
}

func principalFromContext(c echo.Context) (uuid.UUID, error) {
	principalID, ok := c.Get(middleware.ContextKeyPrincipalID).(uuid.UUID)
	if !ok {
		return uuid.Nil, domainerrors.ErrTokenInvalid
	}

	return principalID, nil
}

func orderIDParam(c echo.Context) (uuid.UUID, error) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WithDetails("order id must be a UUID")
	}

	return orderID, nil
}

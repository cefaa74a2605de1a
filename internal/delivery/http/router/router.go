// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"ordersync/config"
	"ordersync/internal/delivery/http/middleware"
	"ordersync/internal/delivery/http/router/handler"
	"ordersync/internal/delivery/ws"
	"ordersync/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// RouterParams holds everything the route table depends on.
type RouterParams struct {
	fx.In

	Config         *config.Config
	OrderHandler   *handler.OrderHandler
	DeviceHandler  *handler.DeviceHandler
	WSHandler      *ws.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	cfg            *config.Config
	orderHandler   *handler.OrderHandler
	deviceHandler  *handler.DeviceHandler
	wsHandler      *ws.Handler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		cfg:            params.Config,
		orderHandler:   params.OrderHandler,
		deviceHandler:  params.DeviceHandler,
		wsHandler:      params.WSHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Realtime order event channel
	e.GET(r.cfg.Realtime.Path, r.wsHandler.Serve, r.authMiddleware.Authenticate)

	// Order routes, all authenticated
	orderGroup := e.Group("/orders")
	orderGroup.Use(r.authMiddleware.Authenticate)
	{
		orderGroup.POST("", r.orderHandler.PlaceOrder, r.authMiddleware.RequireRole(entity.RoleCustomer.String()))
		orderGroup.GET("", r.orderHandler.ListOrders)
		orderGroup.GET("/:id", r.orderHandler.GetOrder)
		orderGroup.GET("/:id/qrcode", r.orderHandler.TrackingQR)
		orderGroup.PATCH("/:id/status", r.orderHandler.UpdateStatus)
		orderGroup.POST("/:id/cancel", r.orderHandler.Cancel)
		orderGroup.POST("/:id/courier", r.orderHandler.AssignCourier,
			r.authMiddleware.RequireRole(entity.RoleCourier.String()))
	}

	// Device registration for push notifications
	deviceGroup := e.Group("/devices")
	deviceGroup.Use(r.authMiddleware.Authenticate)
	{
		deviceGroup.POST("", r.deviceHandler.Register)
	}
}

package handler

import (
	"net/http"

	"ordersync/internal/delivery/http/response"
	"ordersync/internal/domain/entity"
	"ordersync/internal/domain/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// DeviceHandler registers push-notification device tokens.
type DeviceHandler struct {
	deviceRepo repository.DeviceRepository
}

// DeviceHandlerParams holds dependencies for the DeviceHandler.
type DeviceHandlerParams struct {
	fx.In

	DeviceRepo repository.DeviceRepository
}

// NewDeviceHandler creates a new device handler.
func NewDeviceHandler(params DeviceHandlerParams) *DeviceHandler {
	return &DeviceHandler{deviceRepo: params.DeviceRepo}
}

type registerDeviceRequest struct {
	FCMToken string `json:"fcm_token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// Register handles POST /devices.
func (h *DeviceHandler) Register(c echo.Context) error {
	principalID, err := principalFromContext(c)
	if err != nil {
		return err
	}

	var req registerDeviceRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_REQUEST", "Failed to parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	device := &entity.Device{
		PrincipalID: principalID,
		FCMToken:    req.FCMToken,
		Platform:    req.Platform,
	}
	if err := h.deviceRepo.Upsert(c.Request().Context(), device); err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, device, "Device registered")
}

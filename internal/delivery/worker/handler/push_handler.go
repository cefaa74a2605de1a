// Package handler decodes pub/sub push deliveries into order events.
package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"ordersync/config"
	deliverycontext "ordersync/internal/delivery/context"
	"ordersync/internal/delivery/ws"
	"ordersync/internal/domain/constants"
	"ordersync/internal/domain/entity"
	domainerrors "ordersync/internal/domain/errors"
	"ordersync/internal/domain/event"
	"ordersync/internal/domain/repository"
	"ordersync/internal/domain/service"
	"ordersync/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func newRetryableError(err error) error {
	return &retryableError{err: err}
}

func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// PushHandler receives order lifecycle events from the pub/sub
// subscription, fans them into the realtime hub, and fires terminal
// push notifications to the customer's devices.
type PushHandler struct {
	verifyPushAuth  bool
	logger          *slog.Logger
	hub             *ws.Hub
	orderUsecase    usecase.OrderUsecase
	notificationSvc service.NotificationService
	deviceRepo      repository.DeviceRepository
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config          *config.Config
	Logger          *slog.Logger
	Hub             *ws.Hub
	OrderUsecase    usecase.OrderUsecase
	NotificationSvc service.NotificationService `optional:"true"`
	DeviceRepo      repository.DeviceRepository
}

// NewPushHandler creates a new Pub/Sub push handler
func NewPushHandler(params PushHandlerParams) *PushHandler {
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &PushHandler{
		verifyPushAuth:  verifyPushAuth,
		logger:          params.Logger,
		hub:             params.Hub,
		orderUsecase:    params.OrderUsecase,
		notificationSvc: params.NotificationSvc,
		deviceRepo:      params.DeviceRepo,
	}
}

// HandlePush handles incoming Pub/Sub push messages
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var envelope event.Envelope
	if err := envelope.UnmarshalJSON(data); err != nil {
		h.logger.Error("[Worker] Failed to parse order event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	reqLogger := deliverycontext.GetLoggerOrDefault(ctx, h.logger)

	reqLogger.Info("[Worker] Processing order event",
		slog.String("event_type", string(envelope.Type)),
		slog.String("order_id", envelope.OrderID),
	)

	if err := h.processEvent(ctx, &envelope); err != nil {
		reqLogger.Error("[Worker] Failed to process order event",
			slog.String("event_type", string(envelope.Type)),
			slog.String("order_id", envelope.OrderID),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		// 503 retries retryable failures; anything else acks so pub/sub
		// does not redeliver a poison message forever.
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	return c.NoContent(http.StatusOK)
}

// processEvent resolves the event's audience, broadcasts it, and fires
// terminal push notifications.
func (h *PushHandler) processEvent(ctx context.Context, envelope *event.Envelope) error {
	order, err := h.resolveOrder(ctx, envelope)
	if err != nil {
		return err
	}

	h.hub.Broadcast(envelope, orderAudience(order))

	switch envelope.Type {
	case event.TypeOrderDelivered:
		h.notifyCustomer(ctx, order, "訂單已送達", "您的 "+order.RestaurantName+" 訂單已送達，請享用！")
	case event.TypeOrderCancelled:
		h.notifyCustomer(ctx, order, "訂單已取消", "您的 "+order.RestaurantName+" 訂單已取消")
	}

	return nil
}

// resolveOrder recovers the full order behind an event. order_created
// carries it inline; every other type is looked up.
func (h *PushHandler) resolveOrder(ctx context.Context, envelope *event.Envelope) (*entity.Order, error) {
	if envelope.Type == event.TypeOrderCreated {
		order, err := envelope.DecodeOrder()

		return order, errors.Wrap(err, "failed to decode order payload")
	}

	orderID, err := uuid.Parse(envelope.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order id in event")
	}

	order, err := h.orderUsecase.GetOrder(ctx, orderID)
	if err != nil {
		// Not-found is permanent; infrastructure failures are worth a
		// redelivery.
		if errors.Is(err, domainerrors.ErrOrderNotFound) {
			return nil, err
		}

		return nil, newRetryableError(err)
	}

	return order, nil
}

// orderAudience lists the principals that should receive events for an
// order without an explicit subscription.
func orderAudience(order *entity.Order) []string {
	audience := []string{
		order.CustomerID.String(),
		order.RestaurantID.String(),
	}
	if order.CourierID != nil {
		audience = append(audience, order.CourierID.String())
	}

	return audience
}

// notifyCustomer sends a best-effort push to the customer's devices.
func (h *PushHandler) notifyCustomer(ctx context.Context, order *entity.Order, title, body string) {
	if h.notificationSvc == nil {
		return
	}

	devices, err := h.deviceRepo.ListByPrincipals(ctx, []uuid.UUID{order.CustomerID})
	if err != nil {
		h.logger.Warn("[Worker] Failed to list customer devices",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", err),
		)

		return
	}
	if len(devices) == 0 {
		return
	}

	tokens := make([]string, len(devices))
	for i, device := range devices {
		tokens[i] = device.FCMToken
	}

	data := map[string]string{
		"order_id": order.ID.String(),
		"status":   string(order.Status),
	}

	_, _, invalidTokens, err := h.notificationSvc.SendBatchNotification(ctx, tokens, title, body, data)
	if err != nil {
		h.logger.Warn("[Worker] Failed to send push notification",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", err),
		)

		return
	}

	for _, token := range invalidTokens {
		if err := h.deviceRepo.DeleteByToken(ctx, token); err != nil {
			h.logger.Warn("[Worker] Failed to delete invalid device token", slog.Any("error", err))
		}
	}
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// The expected audience is this push endpoint's URL.
	scheme := "https"
	if req.TLS == nil {
		scheme = "http" // For local development
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	ctx := req.Context()
	payload, err := idtoken.Validate(ctx, token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}

package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ordersync/config"
	"ordersync/internal/delivery/ws"
	"ordersync/internal/domain/entity"
	domainerrors "ordersync/internal/domain/errors"
	"ordersync/internal/domain/event"
	"ordersync/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrderUsecase struct {
	order    *entity.Order
	getErr   error
	getCalls int
}

func (s *stubOrderUsecase) PlaceOrder(context.Context, usecase.PlaceOrderInput) (*entity.Order, error) {
	panic("not used")
}

func (s *stubOrderUsecase) GetOrder(_ context.Context, _ uuid.UUID) (*entity.Order, error) {
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}

	return s.order, nil
}

func (s *stubOrderUsecase) ListCustomerOrders(context.Context, uuid.UUID) ([]*entity.Order, error) {
	panic("not used")
}

func (s *stubOrderUsecase) ListRestaurantOrders(context.Context, uuid.UUID) ([]*entity.Order, error) {
	panic("not used")
}

func (s *stubOrderUsecase) ListCourierOrders(context.Context, uuid.UUID) ([]*entity.Order, error) {
	panic("not used")
}

func (s *stubOrderUsecase) TransitionStatus(context.Context, uuid.UUID, entity.OrderStatus) (*entity.Order, error) {
	panic("not used")
}

func (s *stubOrderUsecase) CancelOrder(context.Context, uuid.UUID) (*entity.Order, error) {
	panic("not used")
}

func (s *stubOrderUsecase) AssignCourier(context.Context, usecase.AssignCourierInput) (*entity.Order, *entity.DeliveryTask, error) {
	panic("not used")
}

func (s *stubOrderUsecase) TrackingQR(context.Context, uuid.UUID) ([]byte, error) {
	panic("not used")
}

type fakeNotificationService struct {
	titles        []string
	bodies        []string
	tokens        [][]string
	invalidTokens []string
}

func (f *fakeNotificationService) SendBatchNotification(_ context.Context, tokens []string, title, body string, _ map[string]string) (int, int, []string, error) {
	f.tokens = append(f.tokens, tokens)
	f.titles = append(f.titles, title)
	f.bodies = append(f.bodies, body)

	return len(tokens) - len(f.invalidTokens), len(f.invalidTokens), f.invalidTokens, nil
}

func (f *fakeNotificationService) SendSingleNotification(context.Context, string, string, string, map[string]string) error {
	return nil
}

type fakeDeviceRepo struct {
	devices       []*entity.Device
	deletedTokens []string
}

func (f *fakeDeviceRepo) Upsert(context.Context, *entity.Device) error {
	return nil
}

func (f *fakeDeviceRepo) ListByPrincipals(context.Context, []uuid.UUID) ([]*entity.Device, error) {
	return f.devices, nil
}

func (f *fakeDeviceRepo) DeleteByToken(_ context.Context, token string) error {
	f.deletedTokens = append(f.deletedTokens, token)

	return nil
}

func deliveredOrder(t *testing.T) *entity.Order {
	t.Helper()

	courierID := uuid.New()

	return &entity.Order{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		RestaurantID:   uuid.New(),
		RestaurantName: "小籠包之家",
		CourierID:      &courierID,
		Status:         entity.StatusDelivered,
	}
}

func newPushTestHandler(t *testing.T, orderUC usecase.OrderUsecase, notifier *fakeNotificationService, devices *fakeDeviceRepo) *PushHandler {
	t.Helper()

	cfg := &config.Config{}
	cfg.Realtime = &config.RealtimeConfig{SendBuffer: 8}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := ws.NewHub(ws.HubParams{Config: cfg, Logger: logger})

	params := PushHandlerParams{
		Config:       cfg,
		Logger:       logger,
		Hub:          hub,
		OrderUsecase: orderUC,
		DeviceRepo:   devices,
	}
	// A nil *fakeNotificationService must stay a nil interface, matching
	// the optional dependency being absent.
	if notifier != nil {
		params.NotificationSvc = notifier
	}

	return NewPushHandler(params)
}

func pushRequest(t *testing.T, envelope *event.Envelope) echo.Context {
	t.Helper()

	payload, err := json.Marshal(envelope)
	require.NoError(t, err)

	return pushRequestRaw(t, base64.StdEncoding.EncodeToString(payload))
}

func pushRequestRaw(t *testing.T, data string) echo.Context {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"message": map[string]any{"data": data, "messageId": "m-1"},
	})
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	return e.NewContext(req, rec)
}

func recorder(c echo.Context) *httptest.ResponseRecorder {
	return c.Response().Writer.(*httptest.ResponseRecorder)
}

func TestPushHandler_DeliveredNotifiesCustomer(t *testing.T) {
	t.Parallel()

	order := deliveredOrder(t)
	orderUC := &stubOrderUsecase{order: order}
	notifier := &fakeNotificationService{invalidTokens: []string{"stale-token"}}
	devices := &fakeDeviceRepo{devices: []*entity.Device{
		{FCMToken: "token-a"},
		{FCMToken: "stale-token"},
	}}

	h := newPushTestHandler(t, orderUC, notifier, devices)

	envelope, err := event.NewEnvelope(event.TypeOrderDelivered, order.ID.String(), 0, nil)
	require.NoError(t, err)

	c := pushRequest(t, envelope)
	require.NoError(t, h.HandlePush(c))

	assert.Equal(t, http.StatusOK, recorder(c).Code)
	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "訂單已送達", notifier.titles[0])
	assert.Contains(t, notifier.bodies[0], order.RestaurantName)
	assert.Equal(t, []string{"token-a", "stale-token"}, notifier.tokens[0])
	// Tokens FCM reported invalid are pruned.
	assert.Equal(t, []string{"stale-token"}, devices.deletedTokens)
}

func TestPushHandler_CancelledNotifiesCustomer(t *testing.T) {
	t.Parallel()

	order := deliveredOrder(t)
	order.Status = entity.StatusCancelled
	orderUC := &stubOrderUsecase{order: order}
	notifier := &fakeNotificationService{}
	devices := &fakeDeviceRepo{devices: []*entity.Device{{FCMToken: "token-a"}}}

	h := newPushTestHandler(t, orderUC, notifier, devices)

	envelope, err := event.NewEnvelope(event.TypeOrderCancelled, order.ID.String(), 0, nil)
	require.NoError(t, err)

	c := pushRequest(t, envelope)
	require.NoError(t, h.HandlePush(c))

	assert.Equal(t, http.StatusOK, recorder(c).Code)
	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "訂單已取消", notifier.titles[0])
}

func TestPushHandler_OrderCreatedUsesInlinePayload(t *testing.T) {
	t.Parallel()

	order := deliveredOrder(t)
	order.Status = entity.StatusPending
	orderUC := &stubOrderUsecase{}

	h := newPushTestHandler(t, orderUC, nil, &fakeDeviceRepo{})

	envelope, err := event.NewEnvelope(event.TypeOrderCreated, order.ID.String(), 0,
		event.OrderCreatedPayload{Order: *order})
	require.NoError(t, err)

	c := pushRequest(t, envelope)
	require.NoError(t, h.HandlePush(c))

	assert.Equal(t, http.StatusOK, recorder(c).Code)
	assert.Zero(t, orderUC.getCalls, "order_created must not trigger a lookup")
}

func TestPushHandler_UnknownOrderIsAcked(t *testing.T) {
	t.Parallel()

	orderUC := &stubOrderUsecase{getErr: domainerrors.ErrOrderNotFound}

	h := newPushTestHandler(t, orderUC, nil, &fakeDeviceRepo{})

	envelope, err := event.NewEnvelope(event.TypeOrderStatusChanged, uuid.New().String(), 0,
		event.StatusChangedPayload{Status: entity.StatusConfirmed})
	require.NoError(t, err)

	c := pushRequest(t, envelope)
	require.NoError(t, h.HandlePush(c))

	// Acked so pub/sub does not redeliver a poison message.
	assert.Equal(t, http.StatusOK, recorder(c).Code)
}

func TestPushHandler_LookupFailureAsksForRetry(t *testing.T) {
	t.Parallel()

	orderUC := &stubOrderUsecase{getErr: errors.New("connection refused")}

	h := newPushTestHandler(t, orderUC, nil, &fakeDeviceRepo{})

	envelope, err := event.NewEnvelope(event.TypeOrderStatusChanged, uuid.New().String(), 0,
		event.StatusChangedPayload{Status: entity.StatusConfirmed})
	require.NoError(t, err)

	c := pushRequest(t, envelope)
	require.NoError(t, h.HandlePush(c))

	assert.Equal(t, http.StatusServiceUnavailable, recorder(c).Code)
}

func TestPushHandler_MalformedDataRejected(t *testing.T) {
	t.Parallel()

	h := newPushTestHandler(t, &stubOrderUsecase{}, nil, &fakeDeviceRepo{})

	c := pushRequestRaw(t, "not-base64!!!")
	require.NoError(t, h.HandlePush(c))

	assert.Equal(t, http.StatusBadRequest, recorder(c).Code)
}

package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"ordersync/internal/domain/entity"
	domainerrors "ordersync/internal/domain/errors"
	"ordersync/internal/domain/event"
	"ordersync/internal/domain/repository"
	"ordersync/internal/usecase"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderRepo is an in-memory OrderRepository for service tests.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*entity.Order

	createErr error
	updateErr error
	assignErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*entity.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *entity.Order) error {
	if r.createErr != nil {
		return r.createErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	r.orders[order.ID] = &clone

	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	clone := *order

	return &clone, nil
}

func (r *fakeOrderRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Order
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			clone := *order
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeOrderRepo) ListByRestaurant(_ context.Context, restaurantID uuid.UUID) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Order
	for _, order := range r.orders {
		if order.RestaurantID == restaurantID {
			clone := *order
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeOrderRepo) ListByCourier(_ context.Context, courierID uuid.UUID) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Order
	for _, order := range r.orders {
		if order.CourierID != nil && *order.CourierID == courierID {
			clone := *order
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.OrderStatus) error {
	if r.updateErr != nil {
		return r.updateErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status != from {
		return repository.ErrOrderStatusConflict
	}
	order.Status = to

	return nil
}

func (r *fakeOrderRepo) AssignCourier(_ context.Context, id uuid.UUID, courierID uuid.UUID) error {
	if r.assignErr != nil {
		return r.assignErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.CourierID != nil {
		return repository.ErrCourierConflict
	}
	order.CourierID = &courierID

	return nil
}

// capturePublisher records published envelopes.
type capturePublisher struct {
	mu        sync.Mutex
	envelopes []*event.Envelope
}

func (p *capturePublisher) PublishOrderEvent(_ context.Context, envelope *event.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, envelope)

	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published() []*event.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*event.Envelope(nil), p.envelopes...)
}

type fakeQRCode struct{}

func (fakeQRCode) GenerateTrackingQR(uuid.UUID) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}
func (fakeQRCode) ParseTrackingQR(string) (uuid.UUID, error) { return uuid.Nil, nil }

func newTestOrderService(t *testing.T) (usecase.OrderUsecase, *fakeOrderRepo, *capturePublisher) {
	t.Helper()

	repo := newFakeOrderRepo()
	publisher := &capturePublisher{}
	svc := NewOrderService(OrderServiceParams{
		OrderRepo:     repo,
		Publisher:     publisher,
		QRCodeService: fakeQRCode{},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return svc, repo, publisher
}

func placeOrder(t *testing.T, svc usecase.OrderUsecase) *entity.Order {
	t.Helper()

	order, err := svc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		CustomerID:     uuid.New(),
		RestaurantID:   uuid.New(),
		RestaurantName: "Dumpling House",
		Items: []entity.OrderItem{
			{Name: "Pork Dumplings", UnitPrice: 8.5, Quantity: 2},
		},
		DeliveryFee: 3.0,
		Tax:         1.5,
	})
	require.NoError(t, err)

	return order
}

func TestOrderService_PlaceOrder(t *testing.T) {
	t.Parallel()

	svc, _, publisher := newTestOrderService(t)
	order := placeOrder(t, svc)

	assert.Equal(t, entity.StatusPending, order.Status)
	assert.InDelta(t, 17.0, order.Subtotal, 1e-9)
	assert.InDelta(t, 21.5, order.Total, 1e-9)

	envelopes := publisher.published()
	require.Len(t, envelopes, 1)
	assert.Equal(t, event.TypeOrderCreated, envelopes[0].Type)
	assert.Equal(t, order.ID.String(), envelopes[0].OrderID)
}

func TestOrderService_PlaceOrderRejectsEmptyAndInvalidItems(t *testing.T) {
	t.Parallel()

	svc, _, publisher := newTestOrderService(t)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, usecase.PlaceOrderInput{CustomerID: uuid.New()})
	assert.ErrorIs(t, err, domainerrors.ErrEmptyOrder)

	_, err = svc.PlaceOrder(ctx, usecase.PlaceOrderInput{
		CustomerID: uuid.New(),
		Items:      []entity.OrderItem{{Name: "Ghost Item", UnitPrice: 5, Quantity: 0}},
	})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_FAILED", appErr.ErrorCode())

	assert.Empty(t, publisher.published(), "rejected orders must not emit events")
}

func TestOrderService_TotalClampedAtZero(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestOrderService(t)

	order, err := svc.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		CustomerID:   uuid.New(),
		RestaurantID: uuid.New(),
		Items:        []entity.OrderItem{{Name: "Tea", UnitPrice: 2, Quantity: 1}},
		Discount:     50,
	})
	require.NoError(t, err)
	assert.Zero(t, order.Total)
}

func TestOrderService_TransitionStatus(t *testing.T) {
	t.Parallel()

	svc, _, publisher := newTestOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)

	updated, err := svc.TransitionStatus(ctx, order.ID, entity.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, updated.Status)

	// Backward move is rejected.
	_, err = svc.TransitionStatus(ctx, order.ID, entity.StatusPending)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)

	// Skipping forward is allowed.
	updated, err = svc.TransitionStatus(ctx, order.ID, entity.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, updated.Status)

	envelopes := publisher.published()
	require.Len(t, envelopes, 3)
	assert.Equal(t, event.TypeOrderStatusChanged, envelopes[1].Type)
}

func TestOrderService_PickupRequiresReadyAndCourier(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)

	// No courier yet.
	_, _, err := svc.AssignCourier(ctx, usecase.AssignCourierInput{OrderID: order.ID, CourierID: uuid.New()})
	require.NoError(t, err)

	// Not ready yet.
	_, err = svc.TransitionStatus(ctx, order.ID, entity.StatusPickedUp)
	assert.ErrorIs(t, err, domainerrors.ErrOrderNotReadyForPickup)

	_, err = svc.TransitionStatus(ctx, order.ID, entity.StatusReady)
	require.NoError(t, err)

	updated, err := svc.TransitionStatus(ctx, order.ID, entity.StatusPickedUp)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPickedUp, updated.Status)
}

func TestOrderService_TerminalOrdersRejectEverything(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)

	_, err := svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)

	_, err = svc.TransitionStatus(ctx, order.ID, entity.StatusConfirmed)
	assert.ErrorIs(t, err, domainerrors.ErrOrderAlreadyTerminal)

	_, err = svc.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domainerrors.ErrOrderAlreadyTerminal)

	_, _, err = svc.AssignCourier(ctx, usecase.AssignCourierInput{OrderID: order.ID, CourierID: uuid.New()})
	assert.ErrorIs(t, err, domainerrors.ErrOrderAlreadyTerminal)
}

func TestOrderService_CancelEmitsOrderCancelled(t *testing.T) {
	t.Parallel()

	svc, _, publisher := newTestOrderService(t)
	order := placeOrder(t, svc)

	_, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)

	envelopes := publisher.published()
	require.Len(t, envelopes, 2)
	assert.Equal(t, event.TypeOrderCancelled, envelopes[1].Type)
}

func TestOrderService_AssignCourier(t *testing.T) {
	t.Parallel()

	svc, _, publisher := newTestOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)
	courierID := uuid.New()

	updated, task, err := svc.AssignCourier(ctx, usecase.AssignCourierInput{
		OrderID:         order.ID,
		CourierID:       courierID,
		PickupAddress:   "1 Restaurant Row",
		DeliveryAddress: "99 Customer Ave",
		PickupPoint:     orb.Point{121.5654, 25.0330},
		DeliveryPoint:   orb.Point{121.5436, 25.0478},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CourierID)
	assert.Equal(t, courierID, *updated.CourierID)
	require.NotNil(t, task)
	assert.Equal(t, order.ID, task.OrderID)
	assert.Positive(t, task.DistanceMeters())

	// Second assignment is refused.
	_, _, err = svc.AssignCourier(ctx, usecase.AssignCourierInput{OrderID: order.ID, CourierID: uuid.New()})
	assert.ErrorIs(t, err, domainerrors.ErrCourierAlreadyAssigned)

	envelopes := publisher.published()
	require.Len(t, envelopes, 2)
	assert.Equal(t, event.TypeDeliveryAssigned, envelopes[1].Type)
}

func TestOrderService_GetOrderNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestOrderService(t)

	_, err := svc.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrOrderNotFound)
}

func TestOrderService_TrackingQR(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestOrderService(t)
	order := placeOrder(t, svc)

	png, err := svc.TrackingQR(context.Background(), order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	_, err = svc.TrackingQR(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrOrderNotFound)
}

func TestOrderService_TransitionStatusLosesRaceToConcurrentWriter(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)

	// Another writer moves the order between the read and the guarded
	// update; the repository reports the lost race.
	repo.updateErr = repository.ErrOrderStatusConflict

	_, err := svc.TransitionStatus(ctx, order.ID, entity.StatusConfirmed)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)
}

func TestOrderService_AssignCourierLosesRaceToOtherCourier(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)

	// The stale read still shows no courier; the guarded update catches
	// the claim that landed in between.
	repo.assignErr = repository.ErrCourierConflict

	_, _, err := svc.AssignCourier(ctx, usecase.AssignCourierInput{OrderID: order.ID, CourierID: uuid.New()})
	assert.ErrorIs(t, err, domainerrors.ErrCourierAlreadyAssigned)
}

package client

import (
	"log/slog"
	"sync"
	"time"

	"ordersync/internal/domain/entity"

	"github.com/google/uuid"
)

// OrderStore is the session's locally consistent mirror of its orders.
// It is populated from realtime events and from REST backfills, and it
// enforces the lifecycle invariant locally: the status of a stored
// order only ever moves forward, so a stale or reordered event can
// never regress what the user already saw.
type OrderStore struct {
	logger *slog.Logger

	mu     sync.RWMutex
	orders map[string]*entity.Order
}

// NewOrderStore builds an empty order store.
func NewOrderStore(logger *slog.Logger) *OrderStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &OrderStore{
		logger: logger,
		orders: make(map[string]*entity.Order),
	}
}

// ApplyCreated inserts a freshly created order. A duplicate id is
// ignored; the realtime channel and the REST backfill can both deliver
// the same order and the first copy wins.
func (s *OrderStore) ApplyCreated(orderID string, order *entity.Order) {
	if order == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[orderID]; exists {
		s.logger.Debug("duplicate order_created ignored", slog.String("order_id", orderID))

		return
	}

	s.orders[orderID] = cloneOrder(order)
}

// ApplyStatusChange moves an order to a new status. Unknown order ids
// are ignored, as are transitions the lifecycle forbids; both cases are
// expected under event reordering and are not errors.
func (s *OrderStore) ApplyStatusChange(orderID string, status entity.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[orderID]
	if !exists {
		s.logger.Debug("status change for unknown order ignored",
			slog.String("order_id", orderID),
			slog.String("status", string(status)),
		)

		return
	}

	if !entity.CanTransition(order.Status, status) {
		s.logger.Debug("out-of-order status change rejected",
			slog.String("order_id", orderID),
			slog.String("current", string(order.Status)),
			slog.String("incoming", string(status)),
		)

		return
	}

	order.Status = status
	order.UpdatedAt = time.Now().UTC()
}

// ApplyCancelled marks an order cancelled. Terminal orders stay as they
// are.
func (s *OrderStore) ApplyCancelled(orderID string) {
	s.ApplyStatusChange(orderID, entity.StatusCancelled)
}

// AssignCourier records the courier on an order. Unknown order ids and
// malformed courier ids are ignored.
func (s *OrderStore) AssignCourier(orderID string, courierID string) {
	id, err := uuid.Parse(courierID)
	if err != nil {
		s.logger.Debug("courier assignment with malformed id ignored",
			slog.String("order_id", orderID),
			slog.String("courier_id", courierID),
		)

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[orderID]
	if !exists {
		return
	}

	order.CourierID = &id
	order.UpdatedAt = time.Now().UTC()
}

// Get returns a copy of one order.
func (s *OrderStore) Get(orderID string) (*entity.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[orderID]
	if !exists {
		return nil, false
	}

	return cloneOrder(order), true
}

// All returns copies of every stored order in unspecified iteration
// order. Use the view helpers for filtered and sorted slices.
func (s *OrderStore) All() []*entity.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, cloneOrder(order))
	}

	return out
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}

// cloneOrder copies an order deeply enough that callers cannot mutate
// store state through the returned pointer.
func cloneOrder(order *entity.Order) *entity.Order {
	clone := *order
	clone.Items = append([]entity.OrderItem(nil), order.Items...)
	if order.CourierID != nil {
		id := *order.CourierID
		clone.CourierID = &id
	}

	return &clone
}

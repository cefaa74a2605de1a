package client

import (
	"encoding/json"
	"log/slog"

	"ordersync/internal/domain/entity"
	"ordersync/internal/domain/event"
)

// BindOrderStore subscribes the store to every order lifecycle event on
// the transport, so the local mirror tracks the gateway without any
// per-screen wiring. The returned disposer removes every registration;
// callers must invoke it when the session ends.
func BindOrderStore(transport *Transport, store *OrderStore, logger *slog.Logger) Disposer {
	if logger == nil {
		logger = slog.Default()
	}

	disposers := []Disposer{
		transport.On(event.TypeOrderCreated, func(envelope *event.Envelope) {
			order, err := envelope.DecodeOrder()
			if err != nil {
				logger.Warn("order_created payload rejected",
					slog.String("order_id", envelope.OrderID),
					slog.Any("error", err),
				)

				return
			}
			store.ApplyCreated(envelope.OrderID, order)
		}),
		transport.On(event.TypeOrderStatusChanged, func(envelope *event.Envelope) {
			status, err := envelope.DecodeStatus()
			if err != nil {
				logger.Warn("order_status_changed payload rejected",
					slog.String("order_id", envelope.OrderID),
					slog.Any("error", err),
				)

				return
			}
			store.ApplyStatusChange(envelope.OrderID, status)
		}),
		transport.On(event.TypeDeliveryAssigned, func(envelope *event.Envelope) {
			var payload event.DeliveryAssignedPayload
			if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
				logger.Warn("delivery_assigned payload rejected",
					slog.String("order_id", envelope.OrderID),
					slog.Any("error", err),
				)

				return
			}
			store.AssignCourier(envelope.OrderID, payload.CourierID)
		}),
		transport.On(event.TypeDeliveryPickedUp, func(envelope *event.Envelope) {
			store.ApplyStatusChange(envelope.OrderID, entity.StatusPickedUp)
		}),
		transport.On(event.TypeOrderDelivered, func(envelope *event.Envelope) {
			store.ApplyStatusChange(envelope.OrderID, entity.StatusDelivered)
		}),
		transport.On(event.TypeOrderCancelled, func(envelope *event.Envelope) {
			store.ApplyCancelled(envelope.OrderID)
		}),
	}

	return func() {
		for _, dispose := range disposers {
			dispose()
		}
	}
}

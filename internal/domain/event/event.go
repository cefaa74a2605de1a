// Package event defines the order lifecycle events carried over the
// realtime channel between the gateway and its session clients.
package event

import (
	"encoding/json"
	"time"

	"ordersync/internal/domain/entity"

	"github.com/pkg/errors"
)

// Type names a realtime event on the order channel.
type Type string

const (
	TypeOrderCreated       Type = "order_created"
	TypeOrderStatusChanged Type = "order_status_changed"
	TypeDeliveryAssigned   Type = "delivery_assigned"
	TypeDeliveryPickedUp   Type = "delivery_picked_up"
	TypeOrderDelivered     Type = "order_delivered"
	TypeOrderCancelled     Type = "order_cancelled"
)

// Types lists every event type a client may register for.
var Types = []Type{
	TypeOrderCreated,
	TypeOrderStatusChanged,
	TypeDeliveryAssigned,
	TypeDeliveryPickedUp,
	TypeOrderDelivered,
	TypeOrderCancelled,
}

// IsValid checks if the Type is a known event type.
func (t Type) IsValid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}

	return false
}

// Envelope is the wire form of a single event. OrderID is always the
// canonical string form: upstream producers emit ids as either JSON
// strings or numbers, and the id is normalized once here, at the
// transport boundary, so that nothing downstream ever compares
// mixed-type ids.
type Envelope struct {
	Type      Type            `json:"type"`
	OrderID   string          `json:"order_id"`
	Seq       uint64          `json:"seq"`        // Per-connection, per-type sequence number.
	EmittedAt time.Time       `json:"emitted_at"` // Timestamp of when the gateway emitted the event.
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// envelopeWire mirrors Envelope with a lenient order id for decoding.
type envelopeWire struct {
	Type      Type            `json:"type"`
	OrderID   json.RawMessage `json:"order_id"`
	Seq       uint64          `json:"seq"`
	EmittedAt time.Time       `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// UnmarshalJSON decodes an envelope, normalizing the order id to its
// canonical string form regardless of whether it arrived as a JSON
// string or number.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.Wrap(err, "failed to decode event envelope")
	}

	orderID, err := normalizeOrderID(wire.OrderID)
	if err != nil {
		return err
	}

	e.Type = wire.Type
	e.OrderID = orderID
	e.Seq = wire.Seq
	e.EmittedAt = wire.EmittedAt
	e.Payload = wire.Payload

	return nil
}

// normalizeOrderID coerces a raw JSON order id to its canonical string
// form. A JSON string is taken verbatim; a JSON number keeps its wire
// representation.
func normalizeOrderID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", errors.Wrap(err, "failed to decode order id")
		}

		return id, nil
	}

	var id json.Number
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", errors.Wrap(err, "failed to decode order id")
	}

	return id.String(), nil
}

// OrderCreatedPayload carries the full order for order_created events.
type OrderCreatedPayload struct {
	Order entity.Order `json:"order"`
}

// StatusChangedPayload carries the new status for order_status_changed
// events.
type StatusChangedPayload struct {
	Status entity.OrderStatus `json:"status"`
}

// DeliveryAssignedPayload carries the courier assignment and the derived
// delivery task for delivery_assigned events.
type DeliveryAssignedPayload struct {
	CourierID string               `json:"courier_id"`
	Task      *entity.DeliveryTask `json:"task,omitempty"`
}

// DecodeOrder extracts the order from an order_created payload.
func (e *Envelope) DecodeOrder() (*entity.Order, error) {
	var payload OrderCreatedPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode order payload")
	}

	return &payload.Order, nil
}

// DecodeStatus extracts the new status from a status-bearing payload.
func (e *Envelope) DecodeStatus() (entity.OrderStatus, error) {
	var payload StatusChangedPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return "", errors.Wrap(err, "failed to decode status payload")
	}

	return payload.Status, nil
}

// NewEnvelope builds an envelope with a marshalled payload. It is used by
// the gateway when broadcasting and by tests when faking server frames.
func NewEnvelope(eventType Type, orderID string, seq uint64, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal event payload")
		}
		raw = data
	}

	return &Envelope{
		Type:      eventType,
		OrderID:   orderID,
		Seq:       seq,
		EmittedAt: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

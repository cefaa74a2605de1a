package service

import (
	"context"

	"ordersync/internal/domain/event"
)

// EventPublisher defines the interface for publishing order lifecycle
// events to the message queue feeding the realtime gateway.
type EventPublisher interface {
	// PublishOrderEvent publishes one lifecycle event for async fan-out.
	PublishOrderEvent(ctx context.Context, envelope *event.Envelope) error

	// Close releases any resources held by the publisher.
	Close() error
}

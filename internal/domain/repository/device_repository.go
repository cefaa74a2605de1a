package repository

import (
	"context"

	"ordersync/internal/domain/entity"

	"github.com/google/uuid"
)

// DeviceRepository defines persistence for push-notification devices.
type DeviceRepository interface {
	// Upsert registers a device token, refreshing the row when the token
	// is already known.
	Upsert(ctx context.Context, device *entity.Device) error

	// ListByPrincipals retrieves every device owned by the given
	// principals.
	ListByPrincipals(ctx context.Context, principalIDs []uuid.UUID) ([]*entity.Device, error)

	// DeleteByToken removes a device by its FCM token, typically after
	// the token was reported invalid.
	DeleteByToken(ctx context.Context, token string) error
}

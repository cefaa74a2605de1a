package postgres

import (
	"context"
	"time"

	"ordersync/internal/domain/entity"
	"ordersync/internal/domain/repository"
	"ordersync/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deviceRepository implements the domain.DeviceRepository interface using GORM.
type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository is the constructor for deviceRepository.
func NewDeviceRepository(db *gorm.DB) repository.DeviceRepository {
	return &deviceRepository{db: db}
}

// Upsert registers a device token, refreshing the row when the token is
// already known.
func (repo *deviceRepository) Upsert(ctx context.Context, device *entity.Device) error {
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	now := time.Now()

	deviceM := &model.DeviceModel{
		ID:          device.ID,
		PrincipalID: device.PrincipalID,
		FCMToken:    device.FCMToken,
		Platform:    device.Platform,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fcm_token"}},
			DoUpdates: clause.AssignmentColumns([]string{"principal_id", "platform", "updated_at"}),
		}).
		Create(deviceM).Error

	return errors.Wrap(err, "failed to upsert device")
}

// ListByPrincipals retrieves every device owned by the given principals.
func (repo *deviceRepository) ListByPrincipals(ctx context.Context, principalIDs []uuid.UUID) ([]*entity.Device, error) {
	if len(principalIDs) == 0 {
		return nil, nil
	}

	var models []model.DeviceModel
	err := repo.db.WithContext(ctx).
		Where("principal_id IN ?", principalIDs).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	devices := make([]*entity.Device, len(models))
	for i := range models {
		devices[i] = toDeviceDomain(&models[i])
	}

	return devices, nil
}

// DeleteByToken removes a device by its FCM token.
func (repo *deviceRepository) DeleteByToken(ctx context.Context, token string) error {
	err := repo.db.WithContext(ctx).
		Where("fcm_token = ?", token).
		Delete(&model.DeviceModel{}).Error

	return errors.Wrap(err, "failed to delete device by token")
}

// toDeviceDomain maps the persistence model back to a pure domain entity.
func toDeviceDomain(deviceM *model.DeviceModel) *entity.Device {
	return &entity.Device{
		ID:          deviceM.ID,
		PrincipalID: deviceM.PrincipalID,
		FCMToken:    deviceM.FCMToken,
		Platform:    deviceM.Platform,
		CreatedAt:   deviceM.CreatedAt,
		UpdatedAt:   deviceM.UpdatedAt,
	}
}

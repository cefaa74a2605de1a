package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel mirrors the 'devices' table. The FCM token is unique; a
// re-registration of a known token updates the existing row.
type DeviceModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	PrincipalID uuid.UUID `gorm:"type:uuid;not null;index"`
	FCMToken    string    `gorm:"column:fcm_token;type:varchar(512);not null;uniqueIndex"`
	Platform    string    `gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (DeviceModel) TableName() string {
	return "devices"
}

// Package model holds the GORM persistence models backing the domain
// entities.
package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderItemJSON is the jsonb shape of one order line.
type OrderItemJSON struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// OrderModel mirrors the 'orders' table. Lines are stored denormalized as
// jsonb; the order is the unit of update and lines never change after
// placement.
type OrderModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	RestaurantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	RestaurantName string          `gorm:"type:varchar(255);not null"`
	CourierID      *uuid.UUID      `gorm:"type:uuid;index"`
	Status         string          `gorm:"type:varchar(32);not null;index"`
	Items          []OrderItemJSON `gorm:"type:jsonb;serializer:json"`
	Subtotal       float64         `gorm:"not null"`
	Discount       float64         `gorm:"not null;default:0"`
	DeliveryFee    float64         `gorm:"not null;default:0"`
	Tax            float64         `gorm:"not null;default:0"`
	Total          float64         `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (OrderModel) TableName() string {
	return "orders"
}

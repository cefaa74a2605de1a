package service

import (
	"github.com/google/uuid"
)

// QRCodeService defines the interface for order tracking QR generation.
// The code encodes a tracking link a customer can hand to another device
// without re-authenticating.
type QRCodeService interface {
	// GenerateTrackingQR generates a QR code image for an order tracking link.
	GenerateTrackingQR(orderID uuid.UUID) ([]byte, error)

	// ParseTrackingQR parses QR code data and returns the order ID.
	ParseTrackingQR(qrData string) (uuid.UUID, error)
}

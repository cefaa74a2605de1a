// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Device is a push-notification target registered by a signed-in
// session. One principal may hold several devices; tokens are unique
// across the table and re-registration refreshes the existing row.
type Device struct {
	ID          uuid.UUID `json:"id"`
	PrincipalID uuid.UUID `json:"principal_id"` // Owner of the device.
	FCMToken    string    `json:"fcm_token"`    // Firebase Cloud Messaging registration token.
	Platform    string    `json:"platform"`     // ios, android or web.
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

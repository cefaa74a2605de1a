package service

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the custom claims carried in session tokens. Token
// issuance belongs to the external user service; the gateway only
// validates tokens presented at the HTTP and realtime boundaries.
type Claims struct {
	PrincipalID uuid.UUID
	Roles       []string
	Type        string
	jwt.RegisteredClaims
}

// TokenService defines the interface for validating session JWTs.
type TokenService interface {
	// ValidateToken checks the validity of a token string and returns
	// its claims.
	ValidateToken(tokenString string) (*Claims, error)
}

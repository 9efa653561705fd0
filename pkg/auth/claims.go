package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// TokenKind distinguishes access tokens from refresh tokens so one cannot be
// presented where the other is expected.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenPayload captures the data available when minting a JWT.
type TokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
	JTI    string
}

// TokenClaims represents the typed JWT issued to clients. The jti lives in
// RegisteredClaims.ID and is what the logout blacklist keys on.
type TokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
	Kind   TokenKind      `json:"kind"`
	jwt.RegisteredClaims
}

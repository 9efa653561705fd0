package auth

import (
	"github.com/rentfolio/rentfolio-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains either a token pair or a two factor challenge.
type LoginResponse struct {
	AccessToken       string         `json:"access_token,omitempty"`
	RefreshToken      string         `json:"refresh_token,omitempty"`
	TwoFactorRequired bool           `json:"two_factor_required"`
	User              *users.UserDTO `json:"user,omitempty"`
}

// VerifyTwoFactorRequest carries the emailed code back to the API.
type VerifyTwoFactorRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a fresh pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPairResponse is returned by verify and refresh.
type TokenPairResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user,omitempty"`
}

// LogoutRequest revokes the supplied tokens.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// User represents the canonical identity entity. Role is a capability and is
// immutable after registration; occupancy facts live in Tenant rows.
type User struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FirstName    string           `gorm:"column:first_name;not null"`
	LastName     string           `gorm:"column:last_name;not null"`
	Phone        *string          `gorm:"column:phone"`
	Role         enums.UserRole   `gorm:"column:role;type:user_role;not null"`
	Status       enums.UserStatus `gorm:"column:status;type:user_status;not null;default:'pending_verification'"`

	EmailVerifiedAt  *time.Time `gorm:"column:email_verified_at"`
	TwoFactorEnabled bool       `gorm:"column:two_factor_enabled;not null;default:false"`
	TwoFactorCode    *string    `gorm:"column:two_factor_code"`
	TwoFactorExpires *time.Time `gorm:"column:two_factor_expires_at"`

	FailedLoginAttempts int        `gorm:"column:failed_login_attempts;not null;default:0"`
	LockedUntil         *time.Time `gorm:"column:locked_until"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLocked reports whether the lockout window is still open at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// CanLogin reports whether the account status permits issuing tokens.
func (u *User) CanLogin() bool {
	return u.Status == enums.UserStatusActive
}

// IsDisabled reports whether the account has been shut off. A
// pending_verification account is neither disabled nor login-capable.
func (u *User) IsDisabled() bool {
	return u.Status == enums.UserStatusSuspended || u.Status == enums.UserStatusInactive
}

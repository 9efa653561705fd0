package models

import (
	"time"

	"github.com/google/uuid"
)

// BlacklistedToken records a revoked JWT by its jti. Rows past expires_at are
// harmless and can be purged by the cleanup sweep in internal/auth.
type BlacklistedToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	JTI       string    `gorm:"column:jti;not null;uniqueIndex"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;default:now()"`
}

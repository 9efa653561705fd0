package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users. The
// related entity is a typed (kind, id) pair rather than free-text columns.
type Notification struct {
	ID         uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type       enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title      string                 `gorm:"column:title;type:text;not null"`
	Message    string                 `gorm:"column:message;type:text;not null"`
	EntityType *enums.EntityType      `gorm:"column:entity_type;type:entity_type"`
	EntityID   *uuid.UUID             `gorm:"column:entity_id;type:uuid"`
	ReadAt     *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt  time.Time              `gorm:"column:created_at;type:timestamptz;default:now()"`
}

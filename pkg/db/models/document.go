package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Document is an uploaded file stored on local disk. StoragePath is relative
// to the configured uploads directory; ContentType comes from sniffing the
// payload, never from the client.
type Document struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID     uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;index"`
	Kind        enums.DocumentKind `gorm:"column:kind;type:document_kind;not null"`
	FileName    string             `gorm:"column:file_name;not null"`
	ContentType string             `gorm:"column:content_type;not null"`
	SizeBytes   int64              `gorm:"column:size_bytes;not null"`
	StoragePath string             `gorm:"column:storage_path;not null"`

	EntityType *enums.EntityType `gorm:"column:entity_type;type:entity_type"`
	EntityID   *uuid.UUID        `gorm:"column:entity_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

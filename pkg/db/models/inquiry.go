package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Inquiry is a tenant's interest record for a property (and optionally a
// unit). At most one active inquiry may exist per (tenant, property, unit);
// the partial unique index ux_inquiries_active backs the application check.
type Inquiry struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PropertyID        uuid.UUID           `gorm:"column:property_id;type:uuid;not null;index"`
	UnitID            *uuid.UUID          `gorm:"column:unit_id;type:uuid"`
	TenantID          uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index"`
	PropertyManagerID uuid.UUID           `gorm:"column:property_manager_id;type:uuid;not null;index"`
	Status            enums.InquiryStatus `gorm:"column:status;type:inquiry_status;not null;default:'pending'"`
	Message           string              `gorm:"column:message;type:text;not null"`

	// Contact snapshot captured at creation so assignment can fall back to
	// it if the tenant account is ever missing.
	ContactEmail string `gorm:"column:contact_email;not null"`
	ContactName  string `gorm:"column:contact_name"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// InquiryMessage is one message in an inquiry's thread.
type InquiryMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InquiryID uuid.UUID `gorm:"column:inquiry_id;type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

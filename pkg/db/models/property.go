package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Property is a manager-owned building. It must be admin-approved before its
// tenant portal goes live.
type Property struct {
	ID         uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID    uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index"`
	Name       string               `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description;type:text"`
	Address    string               `gorm:"column:address;not null"`
	City       string               `gorm:"column:city;not null"`
	State      string               `gorm:"column:state"`
	PostalCode string               `gorm:"column:postal_code"`
	MonthlyRent decimal.Decimal     `gorm:"column:monthly_rent;type:numeric(12,2);not null;default:0"`
	Status     enums.PropertyStatus `gorm:"column:status;type:property_status;not null;default:'pending_approval'"`

	ReviewedBy *uuid.UUID `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Unit is a tenant-addressable space inside a property. The stored status is
// advisory; reads derive occupancy from active tenant_units rows.
type Unit struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PropertyID      uuid.UUID        `gorm:"column:property_id;type:uuid;not null;index"`
	UnitNumber      string           `gorm:"column:unit_number;not null"`
	Bedrooms        int              `gorm:"column:bedrooms;not null;default:0"`
	Bathrooms       int              `gorm:"column:bathrooms;not null;default:0"`
	MonthlyRent     decimal.Decimal  `gorm:"column:monthly_rent;type:numeric(12,2);not null;default:0"`
	SecurityDeposit decimal.Decimal  `gorm:"column:security_deposit;type:numeric(12,2);not null;default:0"`
	Status          enums.UnitStatus `gorm:"column:status;type:unit_status;not null;default:'vacant'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

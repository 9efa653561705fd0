package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is an occupancy-capable profile, created lazily the first time a
// user is assigned to a unit in a property. A user with role=tenant has no
// Tenant row until then; unique (user_id, property_id) keeps creation
// idempotent per property.
type Tenant struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_tenants_user_property"`
	PropertyID uuid.UUID `gorm:"column:property_id;type:uuid;not null;uniqueIndex:ux_tenants_user_property"`

	// Contact snapshot copied from the user at assignment time.
	Email string  `gorm:"column:email;not null"`
	Phone *string `gorm:"column:phone"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TenantUnit is one lease/occupancy interval. History rows are never deleted,
// only superseded; a range-exclusion constraint forbids overlapping intervals
// for the same (tenant_id, unit_id).
type TenantUnit struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index"`
	UnitID          uuid.UUID       `gorm:"column:unit_id;type:uuid;not null;index"`
	PropertyID      uuid.UUID       `gorm:"column:property_id;type:uuid;not null;index"`
	MoveInDate      time.Time       `gorm:"column:move_in_date;type:date;not null"`
	MoveOutDate     *time.Time      `gorm:"column:move_out_date;type:date"`
	MonthlyRent     decimal.Decimal `gorm:"column:monthly_rent;type:numeric(12,2);not null"`
	SecurityDeposit decimal.Decimal `gorm:"column:security_deposit;type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the occupancy interval covers today.
func (tu *TenantUnit) IsActive(today time.Time) bool {
	day := today.Truncate(24 * time.Hour)
	return tu.MoveOutDate == nil || !tu.MoveOutDate.Before(day)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Bill is a billable obligation against a tenancy. Status is a cached
// aggregate over the bill's payments; internal/billing recomputes it inside
// every payment-mutating transaction and derives paid/due amounts on read.
type Bill struct {
	ID         uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index"`
	UnitID     uuid.UUID        `gorm:"column:unit_id;type:uuid;not null;index"`
	PropertyID uuid.UUID        `gorm:"column:property_id;type:uuid;not null;index"`
	BillType   enums.BillType   `gorm:"column:bill_type;type:bill_type;not null"`
	Amount     decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	DueDate    time.Time        `gorm:"column:due_date;type:date;not null"`
	Status     enums.BillStatus `gorm:"column:status;type:bill_status;not null;default:'pending'"`
	PaidDate   *time.Time       `gorm:"column:paid_date"`
	Notes      *string          `gorm:"column:notes;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Payment is a single remittance applied against a bill.
type Payment struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BillID         uuid.UUID           `gorm:"column:bill_id;type:uuid;not null;index"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method         enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending_approval'"`
	ProofOfPayment *uuid.UUID          `gorm:"column:proof_of_payment;type:uuid"`
	Notes          *string             `gorm:"column:notes;type:text"`

	VerifiedBy *uuid.UUID `gorm:"column:verified_by;type:uuid"`
	VerifiedAt *time.Time `gorm:"column:verified_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

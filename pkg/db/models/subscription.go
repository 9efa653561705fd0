package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// SubscriptionPlan is a platform plan a property manager can subscribe to.
type SubscriptionPlan struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string          `gorm:"column:name;not null;uniqueIndex"`
	Price               decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	BillingPeriodMonths int             `gorm:"column:billing_period_months;not null;default:1"`
	MaxProperties       int             `gorm:"column:max_properties;not null;default:1"`
	MaxUnits            int             `gorm:"column:max_units;not null;default:10"`
	IsActive            bool            `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Subscription links a manager to a plan.
type Subscription struct {
	ID              uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID          uuid.UUID                `gorm:"column:plan_id;type:uuid;not null"`
	Status          enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'pending'"`
	NextBillingDate *time.Time               `gorm:"column:next_billing_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SubscriptionBill is one billing-period obligation for a subscription.
type SubscriptionBill struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID        `gorm:"column:subscription_id;type:uuid;not null;index"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID         uuid.UUID        `gorm:"column:plan_id;type:uuid;not null"`
	Amount         decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	DueDate        time.Time        `gorm:"column:due_date;type:date;not null"`
	Status         enums.BillStatus `gorm:"column:status;type:bill_status;not null;default:'pending'"`
	PaymentDate    *time.Time       `gorm:"column:payment_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentTransaction is a manager's manual subscription payment awaiting
// admin verification.
type PaymentTransaction struct {
	ID                 uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID             uuid.UUID               `gorm:"column:plan_id;type:uuid;not null"`
	SubscriptionBillID *uuid.UUID              `gorm:"column:subscription_bill_id;type:uuid"`
	Amount             decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Reference          string                  `gorm:"column:reference;not null"`
	ProofOfPayment     *uuid.UUID              `gorm:"column:proof_of_payment;type:uuid"`
	Status             enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`

	VerifiedBy *uuid.UUID `gorm:"column:verified_by;type:uuid"`
	VerifiedAt *time.Time `gorm:"column:verified_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// CreatePlanRequest defines a new platform plan.
type CreatePlanRequest struct {
	Name                string          `json:"name" validate:"required,min=2,max=100"`
	Price               decimal.Decimal `json:"price"`
	BillingPeriodMonths int             `json:"billing_period_months" validate:"min=1,max=24"`
	MaxProperties       int             `json:"max_properties" validate:"min=1"`
	MaxUnits            int             `json:"max_units" validate:"min=1"`
}

// UpdatePlanRequest patches an existing plan. Nil fields are left unchanged.
type UpdatePlanRequest struct {
	Name                *string          `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Price               *decimal.Decimal `json:"price,omitempty"`
	BillingPeriodMonths *int             `json:"billing_period_months,omitempty" validate:"omitempty,min=1,max=24"`
	MaxProperties       *int             `json:"max_properties,omitempty" validate:"omitempty,min=1"`
	MaxUnits            *int             `json:"max_units,omitempty" validate:"omitempty,min=1"`
	IsActive            *bool            `json:"is_active,omitempty"`
}

// SubscribeRequest starts a pending subscription to a plan.
type SubscribeRequest struct {
	PlanID uuid.UUID `json:"plan_id" validate:"required"`
}

// SubmitTransactionRequest records a manual subscription payment for admin
// review.
type SubmitTransactionRequest struct {
	PlanID         uuid.UUID       `json:"plan_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"reference" validate:"required,min=3,max=200"`
	ProofOfPayment *uuid.UUID      `json:"proof_of_payment,omitempty"`
}

// VerifyTransactionRequest is the admin's decision on a payment transaction.
type VerifyTransactionRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected pending"`
}

type PlanDTO struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	BillingPeriodMonths int             `json:"billing_period_months"`
	MaxProperties       int             `json:"max_properties"`
	MaxUnits            int             `json:"max_units"`
	IsActive            bool            `json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type SubscriptionDTO struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"user_id"`
	PlanID          uuid.UUID                `json:"plan_id"`
	Status          enums.SubscriptionStatus `json:"status"`
	NextBillingDate *time.Time               `json:"next_billing_date,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

type SubscriptionBillDTO struct {
	ID             uuid.UUID        `json:"id"`
	SubscriptionID uuid.UUID        `json:"subscription_id"`
	PlanID         uuid.UUID        `json:"plan_id"`
	Amount         decimal.Decimal  `json:"amount"`
	DueDate        time.Time        `json:"due_date"`
	Status         enums.BillStatus `json:"status"`
	PaymentDate    *time.Time       `json:"payment_date,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type TransactionDTO struct {
	ID                 uuid.UUID               `json:"id"`
	UserID             uuid.UUID               `json:"user_id"`
	PlanID             uuid.UUID               `json:"plan_id"`
	SubscriptionBillID *uuid.UUID              `json:"subscription_bill_id,omitempty"`
	Amount             decimal.Decimal         `json:"amount"`
	Reference          string                  `json:"reference"`
	ProofOfPayment     *uuid.UUID              `json:"proof_of_payment,omitempty"`
	Status             enums.TransactionStatus `json:"status"`
	VerifiedBy         *uuid.UUID              `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time              `json:"verified_at,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
}

func FromPlan(p *models.SubscriptionPlan) *PlanDTO {
	if p == nil {
		return nil
	}
	return &PlanDTO{
		ID:                  p.ID,
		Name:                p.Name,
		Price:               p.Price,
		BillingPeriodMonths: p.BillingPeriodMonths,
		MaxProperties:       p.MaxProperties,
		MaxUnits:            p.MaxUnits,
		IsActive:            p.IsActive,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func FromSubscription(s *models.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:              s.ID,
		UserID:          s.UserID,
		PlanID:          s.PlanID,
		Status:          s.Status,
		NextBillingDate: s.NextBillingDate,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func FromSubscriptionBill(b *models.SubscriptionBill) *SubscriptionBillDTO {
	if b == nil {
		return nil
	}
	return &SubscriptionBillDTO{
		ID:             b.ID,
		SubscriptionID: b.SubscriptionID,
		PlanID:         b.PlanID,
		Amount:         b.Amount,
		DueDate:        b.DueDate,
		Status:         b.Status,
		PaymentDate:    b.PaymentDate,
		CreatedAt:      b.CreatedAt,
	}
}

func FromTransaction(t *models.PaymentTransaction) *TransactionDTO {
	if t == nil {
		return nil
	}
	return &TransactionDTO{
		ID:                 t.ID,
		UserID:             t.UserID,
		PlanID:             t.PlanID,
		SubscriptionBillID: t.SubscriptionBillID,
		Amount:             t.Amount,
		Reference:          t.Reference,
		ProofOfPayment:     t.ProofOfPayment,
		Status:             t.Status,
		VerifiedBy:         t.VerifiedBy,
		VerifiedAt:         t.VerifiedAt,
		CreatedAt:          t.CreatedAt,
	}
}

package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// CreateBillRequest raises a bill against an active tenancy.
type CreateBillRequest struct {
	TenancyID uuid.UUID       `json:"tenancy_id" validate:"required"`
	BillType  string          `json:"bill_type" validate:"required,oneof=rent deposit utility maintenance other"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   time.Time       `json:"due_date" validate:"required"`
	Notes     *string         `json:"notes,omitempty"`
}

// SubmitPaymentRequest records a tenant's remittance for review.
type SubmitPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method" validate:"required,oneof=bank_transfer cash card check"`
	ProofOfPayment *uuid.UUID      `json:"proof_of_payment,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
}

// VerifyPaymentRequest is the manager's decision on a submitted payment.
type VerifyPaymentRequest struct {
	Approve bool `json:"approve"`
}

// BillDTO carries the bill with its derived amounts. amount_paid and
// amount_due are always computed from payments, never stored.
type BillDTO struct {
	ID         uuid.UUID        `json:"id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	UnitID     uuid.UUID        `json:"unit_id"`
	PropertyID uuid.UUID        `json:"property_id"`
	BillType   enums.BillType   `json:"bill_type"`
	Amount     decimal.Decimal  `json:"amount"`
	AmountPaid decimal.Decimal  `json:"amount_paid"`
	AmountDue  decimal.Decimal  `json:"amount_due"`
	DueDate    time.Time        `json:"due_date"`
	Status     enums.BillStatus `json:"status"`
	PaidDate   *time.Time       `json:"paid_date,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// PaymentDTO is the payment transport shape.
type PaymentDTO struct {
	ID             uuid.UUID           `json:"id"`
	BillID         uuid.UUID           `json:"bill_id"`
	Amount         decimal.Decimal     `json:"amount"`
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	ProofOfPayment *uuid.UUID          `json:"proof_of_payment,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	VerifiedBy     *uuid.UUID          `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time          `json:"verified_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func FromBill(b *models.Bill, amountPaid decimal.Decimal) *BillDTO {
	if b == nil {
		return nil
	}
	due := b.Amount.Sub(amountPaid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	return &BillDTO{
		ID:         b.ID,
		TenantID:   b.TenantID,
		UnitID:     b.UnitID,
		PropertyID: b.PropertyID,
		BillType:   b.BillType,
		Amount:     b.Amount,
		AmountPaid: amountPaid,
		AmountDue:  due,
		DueDate:    b.DueDate,
		Status:     b.Status,
		PaidDate:   b.PaidDate,
		Notes:      b.Notes,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func FromPayment(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	return &PaymentDTO{
		ID:             p.ID,
		BillID:         p.BillID,
		Amount:         p.Amount,
		Method:         p.Method,
		Status:         p.Status,
		ProofOfPayment: p.ProofOfPayment,
		Notes:          p.Notes,
		VerifiedBy:     p.VerifiedBy,
		VerifiedAt:     p.VerifiedAt,
		CreatedAt:      p.CreatedAt,
	}
}

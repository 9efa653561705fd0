package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// InquiryReceivedEvent signals a tenant opened a new inquiry.
type InquiryReceivedEvent struct {
	InquiryID         uuid.UUID  `json:"inquiry_id"`
	PropertyID        uuid.UUID  `json:"property_id"`
	UnitID            *uuid.UUID `json:"unit_id,omitempty"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	PropertyManagerID uuid.UUID  `json:"property_manager_id"`
	ContactEmail      string     `json:"contact_email"`
}

// InquiryRespondedEvent is emitted when a manager replies on an inquiry thread.
type InquiryRespondedEvent struct {
	InquiryID uuid.UUID `json:"inquiry_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	SenderID  uuid.UUID `json:"sender_id"`
}

// TenancyAssignedEvent surfaces the outcome of an assignment.
type TenancyAssignedEvent struct {
	TenancyID    uuid.UUID       `json:"tenancy_id"`
	InquiryID    uuid.UUID       `json:"inquiry_id"`
	TenantUserID uuid.UUID       `json:"tenant_user_id"`
	UnitID       uuid.UUID       `json:"unit_id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	MoveInDate   time.Time       `json:"move_in_date"`
	MonthlyRent  decimal.Decimal `json:"monthly_rent"`
	UserCreated  bool            `json:"user_created"`
}

// BillCreatedEvent tells downstream systems a tenant owes a new bill.
type BillCreatedEvent struct {
	BillID       uuid.UUID       `json:"bill_id"`
	TenantUserID uuid.UUID       `json:"tenant_user_id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	BillType     enums.BillType  `json:"bill_type"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      time.Time       `json:"due_date"`
}

// PaymentSubmittedEvent is emitted when a tenant submits a payment for review.
type PaymentSubmittedEvent struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	BillID       uuid.UUID       `json:"bill_id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	ManagerID    uuid.UUID       `json:"manager_id"`
	TenantUserID uuid.UUID       `json:"tenant_user_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// PaymentDecisionEvent reports a manager approving or rejecting a payment.
type PaymentDecisionEvent struct {
	PaymentID    uuid.UUID           `json:"payment_id"`
	BillID       uuid.UUID           `json:"bill_id"`
	TenantUserID uuid.UUID           `json:"tenant_user_id"`
	Status       enums.PaymentStatus `json:"status"`
	BillStatus   enums.BillStatus    `json:"bill_status"`
}

// PropertyReviewedEvent reports an admin approving or rejecting a property.
type PropertyReviewedEvent struct {
	PropertyID uuid.UUID            `json:"property_id"`
	OwnerID    uuid.UUID            `json:"owner_id"`
	Status     enums.PropertyStatus `json:"status"`
	Reason     string               `json:"reason,omitempty"`
}

// SubscriptionActivatedEvent is emitted when an admin verifies a manager's
// subscription payment.
type SubscriptionActivatedEvent struct {
	SubscriptionID  uuid.UUID  `json:"subscription_id"`
	UserID          uuid.UUID  `json:"user_id"`
	PlanID          uuid.UUID  `json:"plan_id"`
	TransactionID   uuid.UUID  `json:"transaction_id"`
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
}

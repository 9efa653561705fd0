package enums

import "fmt"

// PaymentStatus tracks a remittance against a bill. Only completed and
// approved payments count toward a bill's paid amount.
type PaymentStatus string

const (
	PaymentStatusPendingApproval PaymentStatus = "pending_approval"
	PaymentStatusApproved        PaymentStatus = "approved"
	PaymentStatusRejected        PaymentStatus = "rejected"
	PaymentStatusCompleted       PaymentStatus = "completed"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusRefunded        PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPendingApproval,
	PaymentStatusApproved,
	PaymentStatusRejected,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CountsTowardPaid reports whether the payment contributes to amount_paid.
func (s PaymentStatus) CountsTowardPaid() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusApproved
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

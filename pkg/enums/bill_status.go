package enums

import "fmt"

// BillStatus is a cached aggregate over a bill's payments. It is recomputed
// transactionally after any payment change; never set it directly.
type BillStatus string

const (
	BillStatusPending   BillStatus = "pending"
	BillStatusPartial   BillStatus = "partial"
	BillStatusPaid      BillStatus = "paid"
	BillStatusOverdue   BillStatus = "overdue"
	BillStatusCancelled BillStatus = "cancelled"
)

var validBillStatuses = []BillStatus{
	BillStatusPending,
	BillStatusPartial,
	BillStatusPaid,
	BillStatusOverdue,
	BillStatusCancelled,
}

// IsValid reports whether the value is a known BillStatus.
func (s BillStatus) IsValid() bool {
	for _, candidate := range validBillStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBillStatus converts raw input into a BillStatus.
func ParseBillStatus(value string) (BillStatus, error) {
	for _, candidate := range validBillStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bill status %q", value)
}

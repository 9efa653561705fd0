package enums

import "fmt"

// BillType classifies a billable obligation.
type BillType string

const (
	BillTypeRent        BillType = "rent"
	BillTypeDeposit     BillType = "deposit"
	BillTypeUtility     BillType = "utility"
	BillTypeMaintenance BillType = "maintenance"
	BillTypeOther       BillType = "other"
)

var validBillTypes = []BillType{
	BillTypeRent,
	BillTypeDeposit,
	BillTypeUtility,
	BillTypeMaintenance,
	BillTypeOther,
}

// IsValid reports whether the value is a known BillType.
func (t BillType) IsValid() bool {
	for _, candidate := range validBillTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseBillType converts raw input into a BillType.
func ParseBillType(value string) (BillType, error) {
	for _, candidate := range validBillTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bill type %q", value)
}

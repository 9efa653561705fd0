package enums

import "fmt"

// PropertyStatus tracks the admin approval lifecycle of a property.
type PropertyStatus string

const (
	PropertyStatusPendingApproval PropertyStatus = "pending_approval"
	PropertyStatusActive          PropertyStatus = "active"
	PropertyStatusRejected        PropertyStatus = "rejected"
	PropertyStatusInactive        PropertyStatus = "inactive"
	PropertyStatusMaintenance     PropertyStatus = "maintenance"
)

var validPropertyStatuses = []PropertyStatus{
	PropertyStatusPendingApproval,
	PropertyStatusActive,
	PropertyStatusRejected,
	PropertyStatusInactive,
	PropertyStatusMaintenance,
}

// IsValid reports whether the value is a known PropertyStatus.
func (s PropertyStatus) IsValid() bool {
	for _, candidate := range validPropertyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePropertyStatus converts raw input into a PropertyStatus.
func ParsePropertyStatus(value string) (PropertyStatus, error) {
	for _, candidate := range validPropertyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid property status %q", value)
}

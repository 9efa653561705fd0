package enums

import "fmt"

// InquiryStatus is the lifecycle of a tenant's interest record.
type InquiryStatus string

const (
	InquiryStatusPending   InquiryStatus = "pending"
	InquiryStatusRead      InquiryStatus = "read"
	InquiryStatusResponded InquiryStatus = "responded"
	InquiryStatusAssigned  InquiryStatus = "assigned"
	InquiryStatusClosed    InquiryStatus = "closed"
	InquiryStatusSpam      InquiryStatus = "spam"
)

var validInquiryStatuses = []InquiryStatus{
	InquiryStatusPending,
	InquiryStatusRead,
	InquiryStatusResponded,
	InquiryStatusAssigned,
	InquiryStatusClosed,
	InquiryStatusSpam,
}

// IsValid reports whether the value is a known InquiryStatus.
func (s InquiryStatus) IsValid() bool {
	for _, candidate := range validInquiryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the inquiry still counts against the
// one-active-inquiry-per-(tenant,property,unit) rule.
func (s InquiryStatus) IsActive() bool {
	switch s {
	case InquiryStatusPending, InquiryStatusRead, InquiryStatusResponded:
		return true
	}
	return false
}

// IsTerminal reports whether no further manager transition is allowed.
func (s InquiryStatus) IsTerminal() bool {
	switch s {
	case InquiryStatusAssigned, InquiryStatusClosed, InquiryStatusSpam:
		return true
	}
	return false
}

// ParseInquiryStatus converts raw input into an InquiryStatus.
func ParseInquiryStatus(value string) (InquiryStatus, error) {
	for _, candidate := range validInquiryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inquiry status %q", value)
}

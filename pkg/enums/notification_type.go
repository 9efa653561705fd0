package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeInquiryReceived       NotificationType = "inquiry_received"
	NotificationTypeInquiryResponse       NotificationType = "inquiry_response"
	NotificationTypeTenantAssigned        NotificationType = "tenant_assigned"
	NotificationTypeBillCreated           NotificationType = "bill_created"
	NotificationTypeBillDue               NotificationType = "bill_due"
	NotificationTypePaymentSubmitted      NotificationType = "payment_submitted"
	NotificationTypePaymentVerified       NotificationType = "payment_verified"
	NotificationTypePaymentRejected       NotificationType = "payment_rejected"
	NotificationTypePropertyApproved      NotificationType = "property_approved"
	NotificationTypePropertyRejected      NotificationType = "property_rejected"
	NotificationTypeSubscriptionActivated NotificationType = "subscription_activated"
	NotificationTypeSystemAnnouncement    NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeInquiryReceived,
	NotificationTypeInquiryResponse,
	NotificationTypeTenantAssigned,
	NotificationTypeBillCreated,
	NotificationTypeBillDue,
	NotificationTypePaymentSubmitted,
	NotificationTypePaymentVerified,
	NotificationTypePaymentRejected,
	NotificationTypePropertyApproved,
	NotificationTypePropertyRejected,
	NotificationTypeSubscriptionActivated,
	NotificationTypeSystemAnnouncement,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

package enums

import "fmt"

// OutboxEventType names the domain events written to outbox_events.
type OutboxEventType string

const (
	OutboxEventInquiryReceived       OutboxEventType = "inquiry.received"
	OutboxEventInquiryResponded      OutboxEventType = "inquiry.responded"
	OutboxEventTenantAssigned        OutboxEventType = "tenancy.assigned"
	OutboxEventBillCreated           OutboxEventType = "bill.created"
	OutboxEventPaymentSubmitted      OutboxEventType = "payment.submitted"
	OutboxEventPaymentVerified       OutboxEventType = "payment.verified"
	OutboxEventPaymentRejected       OutboxEventType = "payment.rejected"
	OutboxEventPropertyApproved      OutboxEventType = "property.approved"
	OutboxEventPropertyRejected      OutboxEventType = "property.rejected"
	OutboxEventSubscriptionActivated OutboxEventType = "subscription.activated"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventInquiryReceived,
	OutboxEventInquiryResponded,
	OutboxEventTenantAssigned,
	OutboxEventBillCreated,
	OutboxEventPaymentSubmitted,
	OutboxEventPaymentVerified,
	OutboxEventPaymentRejected,
	OutboxEventPropertyApproved,
	OutboxEventPropertyRejected,
	OutboxEventSubscriptionActivated,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateInquiry      OutboxAggregateType = "inquiry"
	OutboxAggregateTenancy      OutboxAggregateType = "tenancy"
	OutboxAggregateBill         OutboxAggregateType = "bill"
	OutboxAggregatePayment      OutboxAggregateType = "payment"
	OutboxAggregateProperty     OutboxAggregateType = "property"
	OutboxAggregateSubscription OutboxAggregateType = "subscription"
)

package enums

import "fmt"

// EntityType is the typed half of a notification's related-entity reference.
// Keeping it an enum makes invalid (kind, id) combinations unrepresentable.
type EntityType string

const (
	EntityTypeInquiry            EntityType = "inquiry"
	EntityTypeProperty           EntityType = "property"
	EntityTypeUnit               EntityType = "unit"
	EntityTypeTenancy            EntityType = "tenancy"
	EntityTypeBill               EntityType = "bill"
	EntityTypePayment            EntityType = "payment"
	EntityTypeSubscription       EntityType = "subscription"
	EntityTypePaymentTransaction EntityType = "payment_transaction"
)

var validEntityTypes = []EntityType{
	EntityTypeInquiry,
	EntityTypeProperty,
	EntityTypeUnit,
	EntityTypeTenancy,
	EntityTypeBill,
	EntityTypePayment,
	EntityTypeSubscription,
	EntityTypePaymentTransaction,
}

// IsValid reports whether the value is a known EntityType.
func (t EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseEntityType converts raw input into an EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}

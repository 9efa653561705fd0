package enums

import "fmt"

// DocumentKind classifies uploaded files.
type DocumentKind string

const (
	DocumentKindPaymentProof  DocumentKind = "payment_proof"
	DocumentKindLeaseDocument DocumentKind = "lease_document"
	DocumentKindPropertyImage DocumentKind = "property_image"
	DocumentKindOther         DocumentKind = "other"
)

var validDocumentKinds = []DocumentKind{
	DocumentKindPaymentProof,
	DocumentKindLeaseDocument,
	DocumentKindPropertyImage,
	DocumentKindOther,
}

// IsValid reports whether the value is a known DocumentKind.
func (k DocumentKind) IsValid() bool {
	for _, candidate := range validDocumentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseDocumentKind converts raw input into a DocumentKind.
func ParseDocumentKind(value string) (DocumentKind, error) {
	for _, candidate := range validDocumentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document kind %q", value)
}

package inquiries

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// StartInquiryRequest opens a new inquiry against a property or unit.
type StartInquiryRequest struct {
	PropertyID uuid.UUID  `json:"property_id" validate:"required"`
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`
	Message    string     `json:"message" validate:"required"`
}

// AppendMessageRequest adds a message to an inquiry thread.
type AppendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// UpdateStatusRequest moves the inquiry through its manager-side lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=read responded closed spam"`
}

// MessageDTO is one thread entry.
type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	InquiryID uuid.UUID `json:"inquiry_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// InquiryDTO is the inquiry transport shape.
type InquiryDTO struct {
	ID                uuid.UUID           `json:"id"`
	PropertyID        uuid.UUID           `json:"property_id"`
	UnitID            *uuid.UUID          `json:"unit_id,omitempty"`
	TenantID          uuid.UUID           `json:"tenant_id"`
	PropertyManagerID uuid.UUID           `json:"property_manager_id"`
	Status            enums.InquiryStatus `json:"status"`
	Message           string              `json:"message"`
	ContactEmail      string              `json:"contact_email"`
	ContactName       string              `json:"contact_name,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func FromModel(i *models.Inquiry) *InquiryDTO {
	if i == nil {
		return nil
	}
	return &InquiryDTO{
		ID:                i.ID,
		PropertyID:        i.PropertyID,
		UnitID:            i.UnitID,
		TenantID:          i.TenantID,
		PropertyManagerID: i.PropertyManagerID,
		Status:            i.Status,
		Message:           i.Message,
		ContactEmail:      i.ContactEmail,
		ContactName:       i.ContactName,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}

func MessageFromModel(m *models.InquiryMessage) *MessageDTO {
	if m == nil {
		return nil
	}
	return &MessageDTO{
		ID:        m.ID,
		InquiryID: m.InquiryID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

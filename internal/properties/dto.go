package properties

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// CreatePropertyRequest is the manager payload for onboarding a property.
type CreatePropertyRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description *string         `json:"description,omitempty"`
	Address     string          `json:"address" validate:"required"`
	City        string          `json:"city" validate:"required"`
	State       string          `json:"state,omitempty"`
	PostalCode  string          `json:"postal_code,omitempty"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}

// UpdatePropertyRequest carries partial updates. Nil fields are untouched.
type UpdatePropertyRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Address     *string          `json:"address,omitempty"`
	City        *string          `json:"city,omitempty"`
	State       *string          `json:"state,omitempty"`
	PostalCode  *string          `json:"postal_code,omitempty"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent,omitempty"`
}

// ReviewPropertyRequest is the admin approval decision.
type ReviewPropertyRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// CreateUnitRequest adds a unit to a property.
type CreateUnitRequest struct {
	UnitNumber      string          `json:"unit_number" validate:"required"`
	Bedrooms        int             `json:"bedrooms" validate:"gte=0"`
	Bathrooms       int             `json:"bathrooms" validate:"gte=0"`
	MonthlyRent     decimal.Decimal `json:"monthly_rent"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
}

// UpdateUnitRequest carries partial unit updates.
type UpdateUnitRequest struct {
	UnitNumber      *string          `json:"unit_number,omitempty"`
	Bedrooms        *int             `json:"bedrooms,omitempty"`
	Bathrooms       *int             `json:"bathrooms,omitempty"`
	MonthlyRent     *decimal.Decimal `json:"monthly_rent,omitempty"`
	SecurityDeposit *decimal.Decimal `json:"security_deposit,omitempty"`
	Status          *string          `json:"status,omitempty"`
}

// UnitDTO is the unit transport shape with derived occupancy.
type UnitDTO struct {
	ID              uuid.UUID        `json:"id"`
	PropertyID      uuid.UUID        `json:"property_id"`
	UnitNumber      string           `json:"unit_number"`
	Bedrooms        int              `json:"bedrooms"`
	Bathrooms       int              `json:"bathrooms"`
	MonthlyRent     decimal.Decimal  `json:"monthly_rent"`
	SecurityDeposit decimal.Decimal  `json:"security_deposit"`
	Status          enums.UnitStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PropertyDTO is the property transport shape.
type PropertyDTO struct {
	ID          uuid.UUID            `json:"id"`
	OwnerID     uuid.UUID            `json:"owner_id"`
	Name        string               `json:"name"`
	Description *string              `json:"description,omitempty"`
	Address     string               `json:"address"`
	City        string               `json:"city"`
	State       string               `json:"state,omitempty"`
	PostalCode  string               `json:"postal_code,omitempty"`
	MonthlyRent decimal.Decimal      `json:"monthly_rent"`
	Status      enums.PropertyStatus `json:"status"`
	ReviewedAt  *time.Time           `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`

	UnitCount     int `json:"unit_count"`
	OccupiedUnits int `json:"occupied_units"`
}

// UnitFromModel maps a unit with its derived occupancy onto the DTO. When a
// unit has an active tenancy the derived occupied status wins over storage.
func UnitFromModel(u *models.Unit, occupied bool) *UnitDTO {
	if u == nil {
		return nil
	}
	status := u.Status
	if occupied {
		status = enums.UnitStatusOccupied
	} else if status == enums.UnitStatusOccupied {
		status = enums.UnitStatusVacant
	}
	return &UnitDTO{
		ID:              u.ID,
		PropertyID:      u.PropertyID,
		UnitNumber:      u.UnitNumber,
		Bedrooms:        u.Bedrooms,
		Bathrooms:       u.Bathrooms,
		MonthlyRent:     u.MonthlyRent,
		SecurityDeposit: u.SecurityDeposit,
		Status:          status,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func FromModel(p *models.Property, unitCount, occupiedUnits int) *PropertyDTO {
	if p == nil {
		return nil
	}
	return &PropertyDTO{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		PostalCode:  p.PostalCode,
		MonthlyRent: p.MonthlyRent,
		Status:      p.Status,
		ReviewedAt:  p.ReviewedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,

		UnitCount:     unitCount,
		OccupiedUnits: occupiedUnits,
	}
}

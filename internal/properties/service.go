package properties

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox/payloads"
)

type repository interface {
	CreateProperty(ctx context.Context, property *models.Property) error
	FindPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListPropertiesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Property, error)
	ListActiveProperties(ctx context.Context, city string) ([]models.Property, error)
	ListPendingProperties(ctx context.Context) ([]models.Property, error)
	UpdateProperty(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetReview(ctx context.Context, id uuid.UUID, status enums.PropertyStatus, reviewerID uuid.UUID, at time.Time) (int64, error)
	CreateUnit(ctx context.Context, unit *models.Unit) error
	FindUnitByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListUnitsByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.Unit, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, updates map[string]any) error
	OccupiedUnitIDs(ctx context.Context, propertyID uuid.UUID) (map[uuid.UUID]bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the properties service.
type ServiceParams struct {
	Repo   repository
	DB     txRunner
	Outbox eventEmitter

	// RepoForTx rebinds the repository to a transaction. Defaults to
	// NewRepository; tests substitute their fake.
	RepoForTx func(tx *gorm.DB) repository
}

// Service owns the property and unit lifecycle.
type Service interface {
	CreateProperty(ctx context.Context, ownerID uuid.UUID, req CreatePropertyRequest) (*PropertyDTO, error)
	UpdateProperty(ctx context.Context, actorID, propertyID uuid.UUID, req UpdatePropertyRequest) (*PropertyDTO, error)
	GetProperty(ctx context.Context, actorID uuid.UUID, role enums.UserRole, propertyID uuid.UUID) (*PropertyDTO, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]PropertyDTO, error)
	ListActive(ctx context.Context, city string) ([]PropertyDTO, error)
	ListPending(ctx context.Context) ([]PropertyDTO, error)
	Review(ctx context.Context, adminID, propertyID uuid.UUID, req ReviewPropertyRequest) (*PropertyDTO, error)
	CreateUnit(ctx context.Context, actorID, propertyID uuid.UUID, req CreateUnitRequest) (*UnitDTO, error)
	UpdateUnit(ctx context.Context, actorID, unitID uuid.UUID, req UpdateUnitRequest) (*UnitDTO, error)
	ListUnits(ctx context.Context, actorID uuid.UUID, role enums.UserRole, propertyID uuid.UUID) ([]UnitDTO, error)
}

type service struct {
	repo      repository
	db        txRunner
	outbox    eventEmitter
	repoForTx func(tx *gorm.DB) repository
}

// NewService builds a properties service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox is required")
	}
	repoForTx := params.RepoForTx
	if repoForTx == nil {
		repoForTx = func(tx *gorm.DB) repository { return NewRepository(tx) }
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		outbox:    params.Outbox,
		repoForTx: repoForTx,
	}, nil
}

// CreateProperty registers a new property awaiting admin approval.
func (s *service) CreateProperty(ctx context.Context, ownerID uuid.UUID, req CreatePropertyRequest) (*PropertyDTO, error) {
	if req.MonthlyRent.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthly_rent cannot be negative")
	}

	property := &models.Property{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		MonthlyRent: req.MonthlyRent,
		Status:      enums.PropertyStatusPendingApproval,
	}
	if err := s.repo.CreateProperty(ctx, property); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create property")
	}
	return FromModel(property, 0, 0), nil
}

// UpdateProperty applies a partial update. Only the owner may update.
func (s *service) UpdateProperty(ctx context.Context, actorID, propertyID uuid.UUID, req UpdatePropertyRequest) (*PropertyDTO, error) {
	property, err := s.ownedProperty(ctx, actorID, propertyID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.MonthlyRent != nil {
		if req.MonthlyRent.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthly_rent cannot be negative")
		}
		updates["monthly_rent"] = *req.MonthlyRent
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateProperty(ctx, property.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update property")
	}

	updated, err := s.repo.FindPropertyByID(ctx, property.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload property")
	}
	return s.propertyWithOccupancy(ctx, updated)
}

// GetProperty loads one property. Owners see any status, other actors only
// active listings.
func (s *service) GetProperty(ctx context.Context, actorID uuid.UUID, role enums.UserRole, propertyID uuid.UUID) (*PropertyDTO, error) {
	property, err := s.repo.FindPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}

	isOwner := property.OwnerID == actorID
	if !isOwner && role != enums.UserRoleAdmin && property.Status != enums.PropertyStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
	}
	return s.propertyWithOccupancy(ctx, property)
}

// ListMine returns the manager's portfolio with occupancy summaries.
func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]PropertyDTO, error) {
	rows, err := s.repo.ListPropertiesByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list properties")
	}
	return s.withOccupancy(ctx, rows)
}

// ListActive returns approved listings, optionally filtered by city.
func (s *service) ListActive(ctx context.Context, city string) ([]PropertyDTO, error) {
	rows, err := s.repo.ListActiveProperties(ctx, city)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list properties")
	}
	return s.withOccupancy(ctx, rows)
}

// ListPending returns the admin review queue.
func (s *service) ListPending(ctx context.Context) ([]PropertyDTO, error) {
	rows, err := s.repo.ListPendingProperties(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending properties")
	}
	out := make([]PropertyDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], 0, 0))
	}
	return out, nil
}

// Review applies the admin decision and queues the owner notification event
// in the same transaction.
func (s *service) Review(ctx context.Context, adminID, propertyID uuid.UUID, req ReviewPropertyRequest) (*PropertyDTO, error) {
	property, err := s.repo.FindPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if property.Status != enums.PropertyStatusPendingApproval {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "property already reviewed")
	}

	status := enums.PropertyStatusRejected
	eventType := enums.OutboxEventPropertyRejected
	if req.Approve {
		status = enums.PropertyStatusActive
		eventType = enums.OutboxEventPropertyApproved
	}
	now := time.Now().UTC()

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		affected, err := txRepo.SetReview(ctx, property.ID, status, adminID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "review property")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "property already reviewed")
		}

		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.OutboxAggregateProperty,
			AggregateID:   property.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.PropertyReviewedEvent{
				PropertyID: property.ID,
				OwnerID:    property.OwnerID,
				Status:     status,
				Reason:     req.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue review event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	property.Status = status
	property.ReviewedBy = &adminID
	property.ReviewedAt = &now
	return s.propertyWithOccupancy(ctx, property)
}

// CreateUnit adds a unit to an owned property.
func (s *service) CreateUnit(ctx context.Context, actorID, propertyID uuid.UUID, req CreateUnitRequest) (*UnitDTO, error) {
	if _, err := s.ownedProperty(ctx, actorID, propertyID); err != nil {
		return nil, err
	}
	if req.MonthlyRent.IsNegative() || req.SecurityDeposit.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amounts cannot be negative")
	}

	unit := &models.Unit{
		PropertyID:      propertyID,
		UnitNumber:      req.UnitNumber,
		Bedrooms:        req.Bedrooms,
		Bathrooms:       req.Bathrooms,
		MonthlyRent:     req.MonthlyRent,
		SecurityDeposit: req.SecurityDeposit,
		Status:          enums.UnitStatusVacant,
	}
	if err := s.repo.CreateUnit(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create unit")
	}
	return UnitFromModel(unit, false), nil
}

// UpdateUnit applies a partial update to an owned unit.
func (s *service) UpdateUnit(ctx context.Context, actorID, unitID uuid.UUID, req UpdateUnitRequest) (*UnitDTO, error) {
	unit, err := s.repo.FindUnitByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup unit")
	}
	if _, err := s.ownedProperty(ctx, actorID, unit.PropertyID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.UnitNumber != nil {
		updates["unit_number"] = *req.UnitNumber
	}
	if req.Bedrooms != nil {
		updates["bedrooms"] = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		updates["bathrooms"] = *req.Bathrooms
	}
	if req.MonthlyRent != nil {
		if req.MonthlyRent.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthly_rent cannot be negative")
		}
		updates["monthly_rent"] = *req.MonthlyRent
	}
	if req.SecurityDeposit != nil {
		if req.SecurityDeposit.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "security_deposit cannot be negative")
		}
		updates["security_deposit"] = *req.SecurityDeposit
	}
	if req.Status != nil {
		status, err := enums.ParseUnitStatus(*req.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit status")
		}
		updates["status"] = status
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateUnit(ctx, unitID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update unit")
	}

	updated, err := s.repo.FindUnitByID(ctx, unitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload unit")
	}
	occupied, err := s.repo.OccupiedUnitIDs(ctx, updated.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "derive occupancy")
	}
	return UnitFromModel(updated, occupied[updated.ID]), nil
}

// ListUnits returns a property's units with derived occupancy.
func (s *service) ListUnits(ctx context.Context, actorID uuid.UUID, role enums.UserRole, propertyID uuid.UUID) ([]UnitDTO, error) {
	property, err := s.repo.FindPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	isOwner := property.OwnerID == actorID
	if !isOwner && role != enums.UserRoleAdmin && property.Status != enums.PropertyStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
	}

	units, err := s.repo.ListUnitsByProperty(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list units")
	}
	occupied, err := s.repo.OccupiedUnitIDs(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "derive occupancy")
	}

	out := make([]UnitDTO, 0, len(units))
	for i := range units {
		out = append(out, *UnitFromModel(&units[i], occupied[units[i].ID]))
	}
	return out, nil
}

func (s *service) ownedProperty(ctx context.Context, actorID, propertyID uuid.UUID) (*models.Property, error) {
	property, err := s.repo.FindPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if property.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your property")
	}
	return property, nil
}

func (s *service) propertyWithOccupancy(ctx context.Context, property *models.Property) (*PropertyDTO, error) {
	units, err := s.repo.ListUnitsByProperty(ctx, property.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list units")
	}
	occupied, err := s.repo.OccupiedUnitIDs(ctx, property.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "derive occupancy")
	}
	return FromModel(property, len(units), len(occupied)), nil
}

func (s *service) withOccupancy(ctx context.Context, rows []models.Property) ([]PropertyDTO, error) {
	out := make([]PropertyDTO, 0, len(rows))
	for i := range rows {
		dto, err := s.propertyWithOccupancy(ctx, &rows[i])
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", rows[i].ID, err)
		}
		out = append(out, *dto)
	}
	return out, nil
}

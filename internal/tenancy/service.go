package tenancy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/db"
	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox/payloads"
	"github.com/rentfolio/rentfolio-backend/pkg/portal"
	"github.com/rentfolio/rentfolio-backend/pkg/security"
)

const activeTenancyConstraint = "ex_tenant_units_no_overlap"

const tempPasswordLength = 16

type repository interface {
	FindInquiryByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	FindPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	FindUnitByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	FindUnitByNumber(ctx context.Context, propertyID uuid.UUID, unitNumber string) (*models.Unit, error)
	FirstVacantUnit(ctx context.Context, propertyID uuid.UUID) (*models.Unit, error)
	UnitOccupied(ctx context.Context, unitID uuid.UUID) (bool, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	FindOrCreateTenant(ctx context.Context, userID, propertyID uuid.UUID, email string, phone *string) (*models.Tenant, error)
	ActiveTenantUnitExists(ctx context.Context, tenantID, unitID uuid.UUID) (bool, error)
	CreateTenantUnit(ctx context.Context, tenantUnit *models.TenantUnit) error
	UpdateUnitStatus(ctx context.Context, unitID uuid.UUID, status enums.UnitStatus) error
	UpdateInquiryStatus(ctx context.Context, inquiryID uuid.UUID, status enums.InquiryStatus) error
	ListTenanciesByUser(ctx context.Context, userID uuid.UUID) ([]models.TenantUnit, error)
	ListTenanciesByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.TenantUnit, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AssignRequest identifies the inquiry and, optionally, the target unit.
type AssignRequest struct {
	InquiryID  uuid.UUID  `json:"inquiry_id" validate:"required"`
	PropertyID uuid.UUID  `json:"property_id" validate:"required"`
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`
	UnitName   *string    `json:"unit_name,omitempty"`
}

// AssignResult reports what the assignment transaction produced.
type AssignResult struct {
	TenancyID    uuid.UUID  `json:"tenancy_id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	TenantUserID uuid.UUID  `json:"tenant_user_id"`
	UnitID       uuid.UUID  `json:"unit_id"`
	PropertyID   uuid.UUID  `json:"property_id"`
	MoveInDate   time.Time  `json:"move_in_date"`
	MoveOutDate  *time.Time `json:"move_out_date,omitempty"`
	UserCreated  bool       `json:"user_created"`
}

// TenancyDTO is one occupancy interval.
type TenancyDTO struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	UnitID      uuid.UUID  `json:"unit_id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	MoveInDate  time.Time  `json:"move_in_date"`
	MoveOutDate *time.Time `json:"move_out_date,omitempty"`
	Active      bool       `json:"active"`
}

// ServiceParams groups dependencies for the tenancy service.
type ServiceParams struct {
	Repo        repository
	DB          txRunner
	Outbox      eventEmitter
	Portal      portal.Notifier
	PasswordCfg config.PasswordConfig
	LeaseCfg    config.LeaseConfig
	Logger      *logger.Logger

	RepoForTx func(tx *gorm.DB) repository
	Now       func() time.Time
}

// Service runs the inquiry to tenancy assignment workflow.
type Service interface {
	Assign(ctx context.Context, managerID uuid.UUID, req AssignRequest) (*AssignResult, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]TenancyDTO, error)
	ListForProperty(ctx context.Context, managerID, propertyID uuid.UUID) ([]TenancyDTO, error)
}

type service struct {
	repo        repository
	db          txRunner
	outbox      eventEmitter
	portal      portal.Notifier
	passwordCfg config.PasswordConfig
	leaseCfg    config.LeaseConfig
	logg        *logger.Logger
	repoForTx   func(tx *gorm.DB) repository
	now         func() time.Time
}

// NewService builds a tenancy service.
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
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:        params.Repo,
		db:          params.DB,
		outbox:      params.Outbox,
		portal:      params.Portal,
		passwordCfg: params.PasswordCfg,
		leaseCfg:    params.LeaseCfg,
		logg:        params.Logger,
		repoForTx:   repoForTx,
		now:         now,
	}, nil
}

// Assign converts an active inquiry into an occupancy in one transaction:
// resolve the tenant user, resolve a vacant unit, find-or-create the tenant
// profile, insert the occupancy interval, flip the inquiry and unit, and
// queue the notification event. Nothing commits unless every step succeeds.
func (s *service) Assign(ctx context.Context, managerID uuid.UUID, req AssignRequest) (*AssignResult, error) {
	property, err := s.repo.FindPropertyByID(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if property.OwnerID != managerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your property")
	}

	inquiry, err := s.repo.FindInquiryByID(ctx, req.InquiryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup inquiry")
	}
	if inquiry.PropertyID != property.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inquiry does not belong to property")
	}
	if inquiry.Status == enums.InquiryStatusAssigned {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry already assigned")
	}
	if inquiry.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry is closed")
	}

	var result AssignResult
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)

		user, created, err := s.resolveTenantUser(ctx, txRepo, inquiry)
		if err != nil {
			return err
		}

		unit, err := s.resolveUnit(ctx, txRepo, inquiry, req)
		if err != nil {
			return err
		}

		tenant, err := txRepo.FindOrCreateTenant(ctx, user.ID, property.ID, user.Email, user.Phone)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve tenant profile")
		}

		exists, err := txRepo.ActiveTenantUnitExists(ctx, tenant.ID, unit.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check occupancy")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "tenant already occupies this unit")
		}

		moveIn := s.now().Truncate(24 * time.Hour)
		var moveOut *time.Time
		if s.leaseCfg.DefaultDays > 0 {
			out := moveIn.AddDate(0, 0, s.leaseCfg.DefaultDays)
			moveOut = &out
		}

		tenantUnit := &models.TenantUnit{
			TenantID:        tenant.ID,
			UnitID:          unit.ID,
			PropertyID:      property.ID,
			MoveInDate:      moveIn,
			MoveOutDate:     moveOut,
			MonthlyRent:     unit.MonthlyRent,
			SecurityDeposit: unit.SecurityDeposit,
		}
		if err := txRepo.CreateTenantUnit(ctx, tenantUnit); err != nil {
			if db.IsUniqueViolation(err, activeTenancyConstraint) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "tenant already occupies this unit")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create occupancy")
		}

		if err := txRepo.UpdateInquiryStatus(ctx, inquiry.ID, enums.InquiryStatusAssigned); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark inquiry assigned")
		}
		if err := txRepo.UpdateUnitStatus(ctx, unit.ID, enums.UnitStatusOccupied); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark unit occupied")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventTenantAssigned,
			AggregateType: enums.OutboxAggregateTenancy,
			AggregateID:   tenantUnit.ID,
			Actor:         &outbox.ActorRef{UserID: managerID, Role: string(enums.UserRoleManager)},
			Data: payloads.TenancyAssignedEvent{
				TenancyID:    tenantUnit.ID,
				InquiryID:    inquiry.ID,
				TenantUserID: user.ID,
				UnitID:       unit.ID,
				PropertyID:   property.ID,
				MoveInDate:   moveIn,
				MonthlyRent:  unit.MonthlyRent,
				UserCreated:  created,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue assignment event")
		}

		result = AssignResult{
			TenancyID:    tenantUnit.ID,
			TenantID:     tenant.ID,
			TenantUserID: user.ID,
			UnitID:       unit.ID,
			PropertyID:   property.ID,
			MoveInDate:   moveIn,
			MoveOutDate:  moveOut,
			UserCreated:  created,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.pushToPortal(ctx, inquiry.ContactEmail, &result)
	return &result, nil
}

// ListMine returns the calling tenant's occupancy history.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]TenancyDTO, error) {
	rows, err := s.repo.ListTenanciesByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tenancies")
	}
	return s.toDTOs(rows), nil
}

// ListForProperty returns a property's occupancy rows for its owner.
func (s *service) ListForProperty(ctx context.Context, managerID, propertyID uuid.UUID) ([]TenancyDTO, error) {
	property, err := s.repo.FindPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if property.OwnerID != managerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your property")
	}

	rows, err := s.repo.ListTenanciesByProperty(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tenancies")
	}
	return s.toDTOs(rows), nil
}

func (s *service) resolveTenantUser(ctx context.Context, txRepo repository, inquiry *models.Inquiry) (*models.User, bool, error) {
	if inquiry.TenantID != uuid.Nil {
		user, err := txRepo.FindUserByID(ctx, inquiry.TenantID)
		if err == nil {
			return user, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant user")
		}
	}

	// Fallback: the inquiry's tenant account is gone. Recreate one from the
	// contact snapshot so the assignment can proceed.
	email := strings.ToLower(strings.TrimSpace(inquiry.ContactEmail))
	if email == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry has no tenant contact")
	}
	if user, err := txRepo.FindUserByEmail(ctx, email); err == nil {
		return user, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant by email")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	passwordHash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash temp password")
	}

	firstName, lastName := splitContactName(inquiry.ContactName)
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         enums.UserRoleTenant,
		Status:       enums.UserStatusActive,
	}
	if err := txRepo.CreateUser(ctx, user); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create tenant user")
	}
	return user, true, nil
}

// resolveUnit picks the target unit: explicit id, then the inquiry's unit,
// then a unit name, then the first vacant unit.
func (s *service) resolveUnit(ctx context.Context, txRepo repository, inquiry *models.Inquiry, req AssignRequest) (*models.Unit, error) {
	candidateID := req.UnitID
	if candidateID == nil {
		candidateID = inquiry.UnitID
	}

	var unit *models.Unit
	var err error
	switch {
	case candidateID != nil:
		unit, err = txRepo.FindUnitByID(ctx, *candidateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup unit")
		}
	case req.UnitName != nil && strings.TrimSpace(*req.UnitName) != "":
		unit, err = txRepo.FindUnitByNumber(ctx, inquiry.PropertyID, strings.TrimSpace(*req.UnitName))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup unit")
		}
	default:
		unit, err = txRepo.FirstVacantUnit(ctx, inquiry.PropertyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no available units")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find vacant unit")
		}
		return unit, nil
	}

	if unit.PropertyID != inquiry.PropertyID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit does not belong to property")
	}
	occupied, err := txRepo.UnitOccupied(ctx, unit.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check unit occupancy")
	}
	if occupied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "unit is occupied")
	}
	return unit, nil
}

// pushToPortal mirrors the assignment to the tenant portal after commit.
// Failures are logged, never surfaced; the portal catches up on its own.
func (s *service) pushToPortal(ctx context.Context, tenantEmail string, result *AssignResult) {
	if s.portal == nil {
		return
	}
	rec := portal.TenancyRecord{
		TenancyID:   result.TenancyID,
		PropertyID:  result.PropertyID,
		UnitID:      result.UnitID,
		TenantEmail: tenantEmail,
		MoveInDate:  result.MoveInDate.Format("2006-01-02"),
	}
	if result.MoveOutDate != nil {
		rec.MoveOutDate = result.MoveOutDate.Format("2006-01-02")
	}
	if err := s.portal.PushTenancy(ctx, rec); err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"tenancy_id": result.TenancyID.String()})
		s.logg.Error(logCtx, "tenancy.portal_push_failed", err)
	}
}

func (s *service) toDTOs(rows []models.TenantUnit) []TenancyDTO {
	today := s.now()
	out := make([]TenancyDTO, 0, len(rows))
	for i := range rows {
		row := rows[i]
		out = append(out, TenancyDTO{
			ID:          row.ID,
			TenantID:    row.TenantID,
			UnitID:      row.UnitID,
			PropertyID:  row.PropertyID,
			MoveInDate:  row.MoveInDate,
			MoveOutDate: row.MoveOutDate,
			Active:      row.IsActive(today),
		})
	}
	return out
}

func splitContactName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Tenant", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

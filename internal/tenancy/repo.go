package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Repository exposes the persistence surface the assignment transaction needs.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tenancy repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindInquiryByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	if err := r.db.WithContext(ctx).First(&inquiry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *Repository) FindPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *Repository) FindUnitByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *Repository) FindUnitByNumber(ctx context.Context, propertyID uuid.UUID, unitNumber string) (*models.Unit, error) {
	var unit models.Unit
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND unit_number = ?", propertyID, unitNumber).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// FirstVacantUnit returns the lowest-numbered unit of the property with no
// active occupancy.
func (r *Repository) FirstVacantUnit(ctx context.Context, propertyID uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Where("id NOT IN (?)", r.activeUnitSubquery(propertyID)).
		Order("unit_number ASC").
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// UnitOccupied reports whether the unit has an active occupancy row. Derived,
// never read from units.status.
func (r *Repository) UnitOccupied(ctx context.Context, unitID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TenantUnit{}).
		Where("unit_id = ? AND (move_out_date IS NULL OR move_out_date >= CURRENT_DATE)", unitID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) activeUnitSubquery(propertyID uuid.UUID) *gorm.DB {
	return r.db.
		Model(&models.TenantUnit{}).
		Select("unit_id").
		Where("property_id = ? AND (move_out_date IS NULL OR move_out_date >= CURRENT_DATE)", propertyID)
}

func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindOrCreateTenant resolves the occupancy profile for (user, property),
// creating it on first assignment. Unique (user_id, property_id) keeps the
// create idempotent.
func (r *Repository) FindOrCreateTenant(ctx context.Context, userID, propertyID uuid.UUID, email string, phone *string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		First(&tenant).Error
	if err == nil {
		return &tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tenant = models.Tenant{
		UserID:     userID,
		PropertyID: propertyID,
		Email:      email,
		Phone:      phone,
	}
	if err := r.db.WithContext(ctx).Create(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ActiveTenantUnitExists reports whether the tenant already holds an active
// occupancy on the unit.
func (r *Repository) ActiveTenantUnitExists(ctx context.Context, tenantID, unitID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TenantUnit{}).
		Where("tenant_id = ? AND unit_id = ? AND (move_out_date IS NULL OR move_out_date >= CURRENT_DATE)", tenantID, unitID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateTenantUnit(ctx context.Context, tenantUnit *models.TenantUnit) error {
	return r.db.WithContext(ctx).Create(tenantUnit).Error
}

func (r *Repository) UpdateUnitStatus(ctx context.Context, unitID uuid.UUID, status enums.UnitStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("id = ?", unitID).
		UpdateColumn("status", status).Error
}

func (r *Repository) UpdateInquiryStatus(ctx context.Context, inquiryID uuid.UUID, status enums.InquiryStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("id = ?", inquiryID).
		UpdateColumn("status", status).Error
}

// ListTenanciesByUser returns the user's occupancy history, newest first.
func (r *Repository) ListTenanciesByUser(ctx context.Context, userID uuid.UUID) ([]models.TenantUnit, error) {
	var rows []models.TenantUnit
	err := r.db.WithContext(ctx).
		Joins("JOIN tenants ON tenants.id = tenant_units.tenant_id").
		Where("tenants.user_id = ?", userID).
		Order("tenant_units.move_in_date DESC").
		Find(&rows).Error
	return rows, err
}

// ListTenanciesByProperty returns a property's occupancy rows, newest first.
func (r *Repository) ListTenanciesByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.TenantUnit, error) {
	var rows []models.TenantUnit
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("move_in_date DESC").
		Find(&rows).Error
	return rows, err
}

package properties

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Repository exposes property and unit persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a properties repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateProperty(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Create(property).Error
}

func (r *Repository) FindPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *Repository) ListPropertiesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Property, error) {
	var rows []models.Property
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListActiveProperties returns approved properties for tenant browsing.
func (r *Repository) ListActiveProperties(ctx context.Context, city string) ([]models.Property, error) {
	query := r.db.WithContext(ctx).Where("status = ?", enums.PropertyStatusActive)
	if city != "" {
		query = query.Where("lower(city) = lower(?)", city)
	}
	var rows []models.Property
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// ListPendingProperties returns properties awaiting an admin decision.
func (r *Repository) ListPendingProperties(ctx context.Context) ([]models.Property, error) {
	var rows []models.Property
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.PropertyStatusPendingApproval).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) UpdateProperty(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetReview records the admin decision on a pending property. The status
// predicate keeps concurrent reviews from double-applying.
func (r *Repository) SetReview(ctx context.Context, id uuid.UUID, status enums.PropertyStatus, reviewerID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ? AND status = ?", id, enums.PropertyStatusPendingApproval).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) CreateUnit(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *Repository) FindUnitByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *Repository) ListUnitsByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.Unit, error) {
	var rows []models.Unit
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("unit_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) UpdateUnit(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// OccupiedUnitIDs reports which of a property's units currently hold an
// active tenancy. Occupancy is derived, never read from units.status.
func (r *Repository) OccupiedUnitIDs(ctx context.Context, propertyID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.TenantUnit{}).
		Where("property_id = ? AND (move_out_date IS NULL OR move_out_date >= CURRENT_DATE)", propertyID).
		Distinct().
		Pluck("unit_id", &ids).Error
	if err != nil {
		return nil, err
	}
	occupied := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		occupied[id] = true
	}
	return occupied, nil
}

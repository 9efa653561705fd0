package inquiries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

var activeStatuses = []enums.InquiryStatus{
	enums.InquiryStatusPending,
	enums.InquiryStatusRead,
	enums.InquiryStatusResponded,
}

// Repository exposes inquiry persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an inquiries repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	if err := r.db.WithContext(ctx).First(&inquiry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// FindActive returns the open inquiry for (tenant, property, unit) if one
// exists. The unit predicate treats NULL and value distinctly, matching the
// partial unique index that backs this check.
func (r *Repository) FindActive(ctx context.Context, tenantID, propertyID uuid.UUID, unitID *uuid.UUID) (*models.Inquiry, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ? AND status IN ?", tenantID, propertyID, activeStatuses)
	if unitID == nil {
		query = query.Where("unit_id IS NULL")
	} else {
		query = query.Where("unit_id = ?", *unitID)
	}
	var inquiry models.Inquiry
	if err := query.First(&inquiry).Error; err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Inquiry, error) {
	var rows []models.Inquiry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListByManager(ctx context.Context, managerID uuid.UUID, status *enums.InquiryStatus) ([]models.Inquiry, error) {
	query := r.db.WithContext(ctx).Where("property_manager_id = ?", managerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Inquiry
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InquiryStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

func (r *Repository) CreateMessage(ctx context.Context, message *models.InquiryMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *Repository) ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]models.InquiryMessage, error) {
	var rows []models.InquiryMessage
	err := r.db.WithContext(ctx).
		Where("inquiry_id = ?", inquiryID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

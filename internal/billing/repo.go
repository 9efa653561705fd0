package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Repository exposes bill and payment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a billing repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateBill(ctx context.Context, bill *models.Bill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

func (r *Repository) FindBillByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	if err := r.db.WithContext(ctx).First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// ListBillsByTenantUser returns bills across all of a user's tenant profiles.
func (r *Repository) ListBillsByTenantUser(ctx context.Context, userID uuid.UUID) ([]models.Bill, error) {
	var rows []models.Bill
	err := r.db.WithContext(ctx).
		Joins("JOIN tenants ON tenants.id = bills.tenant_id").
		Where("tenants.user_id = ?", userID).
		Order("bills.due_date DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListBillsByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.Bill, error) {
	var rows []models.Bill
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("due_date DESC").
		Find(&rows).Error
	return rows, err
}

// AmountPaid sums the bill's counted payments (completed and approved).
func (r *Repository) AmountPaid(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("bill_id = ? AND status IN ?", billID, []enums.PaymentStatus{
			enums.PaymentStatusCompleted,
			enums.PaymentStatusApproved,
		}).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *Repository) UpdateBillStatus(ctx context.Context, billID uuid.UUID, status enums.BillStatus, paidDate *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("id = ?", billID).
		UpdateColumns(map[string]any{
			"status":    status,
			"paid_date": paidDate,
		}).Error
}

func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// SetPaymentDecision applies the verifier's decision to a pending payment.
// The status predicate keeps a decided payment from being re-decided.
func (r *Repository) SetPaymentDecision(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus, verifierID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, enums.PaymentStatusPendingApproval).
		Updates(map[string]any{
			"status":      status,
			"verified_by": verifierID,
			"verified_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) FindTenantUnitByID(ctx context.Context, id uuid.UUID) (*models.TenantUnit, error) {
	var row models.TenantUnit
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var row models.Tenant
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var row models.Property
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

// Repository exposes plan, subscription and transaction persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscriptions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *Repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *Repository) ListPlans(ctx context.Context, activeOnly bool) ([]models.SubscriptionPlan, error) {
	q := r.db.WithContext(ctx).Order("price ASC")
	if activeOnly {
		q = q.Where("is_active = TRUE")
	}
	var rows []models.SubscriptionPlan
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) UpdatePlan(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SubscriptionPlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// FindSubscriptionByUser returns the user's most recent subscription.
func (r *Repository) FindSubscriptionByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *Repository) UpdateSubscription(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) CreateSubscriptionBill(ctx context.Context, bill *models.SubscriptionBill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

// LatestPendingBill returns the newest unpaid subscription bill for the
// user/plan pair.
func (r *Repository) LatestPendingBill(ctx context.Context, userID, planID uuid.UUID) (*models.SubscriptionBill, error) {
	var bill models.SubscriptionBill
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_id = ? AND status = ?", userID, planID, enums.BillStatusPending).
		Order("created_at DESC").
		First(&bill).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *Repository) MarkBillPaid(ctx context.Context, billID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SubscriptionBill{}).
		Where("id = ?", billID).
		Updates(map[string]any{
			"status":       enums.BillStatusPaid,
			"payment_date": at,
		}).Error
}

func (r *Repository) ListBillsByUser(ctx context.Context, userID uuid.UUID) ([]models.SubscriptionBill, error) {
	var rows []models.SubscriptionBill
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("due_date DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *Repository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *Repository) ListPendingTransactions(ctx context.Context) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.TransactionStatusPending).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// SetTransactionDecision records the admin's decision on a pending
// transaction. The status predicate keeps concurrent admins from deciding the
// same transaction twice.
func (r *Repository) SetTransactionDecision(ctx context.Context, txnID uuid.UUID, status enums.TransactionStatus, verifierID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", txnID, enums.TransactionStatusPending).
		Updates(map[string]any{
			"status":      status,
			"verified_by": verifierID,
			"verified_at": at,
		})
	return res.RowsAffected, res.Error
}

package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox/payloads"
)

// billingPeriodDays is the length of one billing period unit. Plans span
// whole multiples of it via billing_period_months.
const billingPeriodDays = 30

type repository interface {
	CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]models.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	FindSubscriptionByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateSubscriptionBill(ctx context.Context, bill *models.SubscriptionBill) error
	LatestPendingBill(ctx context.Context, userID, planID uuid.UUID) (*models.SubscriptionBill, error)
	MarkBillPaid(ctx context.Context, billID uuid.UUID, at time.Time) error
	ListBillsByUser(ctx context.Context, userID uuid.UUID) ([]models.SubscriptionBill, error)
	CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error)
	ListPendingTransactions(ctx context.Context) ([]models.PaymentTransaction, error)
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentTransaction, error)
	SetTransactionDecision(ctx context.Context, txnID uuid.UUID, status enums.TransactionStatus, verifierID uuid.UUID, at time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the subscriptions service.
type ServiceParams struct {
	Repo   repository
	DB     txRunner
	Outbox eventEmitter

	RepoForTx func(tx *gorm.DB) repository
	Now       func() time.Time
}

// Service manages plans, manager subscriptions and the manual payment
// verification flow.
type Service interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*PlanDTO, error)
	UpdatePlan(ctx context.Context, planID uuid.UUID, req UpdatePlanRequest) (*PlanDTO, error)
	GetPlan(ctx context.Context, planID uuid.UUID) (*PlanDTO, error)
	ListPlans(ctx context.Context, role enums.UserRole) ([]PlanDTO, error)
	Subscribe(ctx context.Context, userID uuid.UUID, req SubscribeRequest) (*SubscriptionDTO, error)
	MySubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error)
	ListMyBills(ctx context.Context, userID uuid.UUID) ([]SubscriptionBillDTO, error)
	SubmitTransaction(ctx context.Context, userID uuid.UUID, req SubmitTransactionRequest) (*TransactionDTO, error)
	ListPendingTransactions(ctx context.Context) ([]TransactionDTO, error)
	ListMyTransactions(ctx context.Context, userID uuid.UUID) ([]TransactionDTO, error)
	VerifyTransaction(ctx context.Context, adminID uuid.UUID, txnID uuid.UUID, req VerifyTransactionRequest) (*TransactionDTO, error)
}

type service struct {
	repo      repository
	db        txRunner
	outbox    eventEmitter
	repoForTx func(tx *gorm.DB) repository
	now       func() time.Time
}

// NewService builds a subscriptions service.
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
		repo:      params.Repo,
		db:        params.DB,
		outbox:    params.Outbox,
		repoForTx: repoForTx,
		now:       now,
	}, nil
}

// CreatePlan adds a new platform plan.
func (s *service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*PlanDTO, error) {
	if !req.Price.GreaterThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	plan := &models.SubscriptionPlan{
		Name:                req.Name,
		Price:               req.Price,
		BillingPeriodMonths: req.BillingPeriodMonths,
		MaxProperties:       req.MaxProperties,
		MaxUnits:            req.MaxUnits,
		IsActive:            true,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create plan")
	}
	return FromPlan(plan), nil
}

// UpdatePlan patches a plan. Price changes only affect bills raised after the
// change.
func (s *service) UpdatePlan(ctx context.Context, planID uuid.UUID, req UpdatePlanRequest) (*PlanDTO, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Price != nil {
		if !req.Price.GreaterThan(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price"] = *req.Price
	}
	if req.BillingPeriodMonths != nil {
		updates["billing_period_months"] = *req.BillingPeriodMonths
	}
	if req.MaxProperties != nil {
		updates["max_properties"] = *req.MaxProperties
	}
	if req.MaxUnits != nil {
		updates["max_units"] = *req.MaxUnits
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return FromPlan(plan), nil
	}
	if err := s.repo.UpdatePlan(ctx, planID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update plan")
	}
	return s.GetPlan(ctx, planID)
}

// GetPlan loads a plan by id.
func (s *service) GetPlan(ctx context.Context, planID uuid.UUID) (*PlanDTO, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return FromPlan(plan), nil
}

// ListPlans returns plans. Non-admin callers see active plans only.
func (s *service) ListPlans(ctx context.Context, role enums.UserRole) ([]PlanDTO, error) {
	rows, err := s.repo.ListPlans(ctx, role != enums.UserRoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list plans")
	}
	out := make([]PlanDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromPlan(&rows[i]))
	}
	return out, nil
}

// Subscribe opens a pending subscription to an active plan and raises its
// first bill in the same transaction.
func (s *service) Subscribe(ctx context.Context, userID uuid.UUID, req SubscribeRequest) (*SubscriptionDTO, error) {
	plan, err := s.loadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "plan is not available")
	}

	existing, err := s.repo.FindSubscriptionByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription")
	}
	if existing != nil && existing.Status == enums.SubscriptionStatusPending && existing.PlanID == plan.ID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "subscription already pending for this plan")
	}

	now := s.now()
	sub := &models.Subscription{
		UserID: userID,
		PlanID: plan.ID,
		Status: enums.SubscriptionStatusPending,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		if err := txRepo.CreateSubscription(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription")
		}
		bill := &models.SubscriptionBill{
			SubscriptionID: sub.ID,
			UserID:         userID,
			PlanID:         plan.ID,
			Amount:         plan.Price,
			DueDate:        now.Truncate(24 * time.Hour),
			Status:         enums.BillStatusPending,
		}
		if err := txRepo.CreateSubscriptionBill(ctx, bill); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription bill")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromSubscription(sub), nil
}

// MySubscription returns the caller's most recent subscription.
func (s *service) MySubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.repo.FindSubscriptionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription")
	}
	return FromSubscription(sub), nil
}

// ListMyBills returns the caller's subscription bills.
func (s *service) ListMyBills(ctx context.Context, userID uuid.UUID) ([]SubscriptionBillDTO, error) {
	rows, err := s.repo.ListBillsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscription bills")
	}
	out := make([]SubscriptionBillDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromSubscriptionBill(&rows[i]))
	}
	return out, nil
}

// SubmitTransaction records a manual payment for admin verification, linked
// to the latest pending bill for the plan when one exists.
func (s *service) SubmitTransaction(ctx context.Context, userID uuid.UUID, req SubmitTransactionRequest) (*TransactionDTO, error) {
	if !req.Amount.GreaterThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	plan, err := s.loadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	txn := &models.PaymentTransaction{
		UserID:         userID,
		PlanID:         plan.ID,
		Amount:         req.Amount,
		Reference:      req.Reference,
		ProofOfPayment: req.ProofOfPayment,
		Status:         enums.TransactionStatusPending,
	}
	if bill, err := s.repo.LatestPendingBill(ctx, userID, plan.ID); err == nil {
		txn.SubscriptionBillID = &bill.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup pending bill")
	}

	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create transaction")
	}
	return FromTransaction(txn), nil
}

// ListPendingTransactions returns the admin review queue.
func (s *service) ListPendingTransactions(ctx context.Context) ([]TransactionDTO, error) {
	rows, err := s.repo.ListPendingTransactions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return toTransactionDTOs(rows), nil
}

// ListMyTransactions returns the caller's submitted transactions.
func (s *service) ListMyTransactions(ctx context.Context, userID uuid.UUID) ([]TransactionDTO, error) {
	rows, err := s.repo.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return toTransactionDTOs(rows), nil
}

// VerifyTransaction applies the admin's decision. When verified, the latest
// pending subscription bill for the payer's plan is marked paid and the
// payer's subscription is activated on that plan, all in one transaction.
func (s *service) VerifyTransaction(ctx context.Context, adminID uuid.UUID, txnID uuid.UUID, req VerifyTransactionRequest) (*TransactionDTO, error) {
	target, err := enums.ParseTransactionStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction status")
	}

	txn, err := s.repo.FindTransactionByID(ctx, txnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup transaction")
	}
	if txn.Status != enums.TransactionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already decided")
	}
	if target == enums.TransactionStatusPending {
		return FromTransaction(txn), nil
	}

	plan, err := s.loadPlan(ctx, txn.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		affected, err := txRepo.SetTransactionDecision(ctx, txn.ID, target, adminID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decide transaction")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already decided")
		}
		if target != enums.TransactionStatusVerified {
			return nil
		}
		return s.activateSubscription(ctx, tx, txRepo, txn, plan, adminID, now)
	})
	if err != nil {
		return nil, err
	}

	txn.Status = target
	txn.VerifiedBy = &adminID
	txn.VerifiedAt = &now
	return FromTransaction(txn), nil
}

// activateSubscription settles the payer's pending bill and moves their
// subscription onto the transaction's plan.
func (s *service) activateSubscription(ctx context.Context, tx *gorm.DB, txRepo repository, txn *models.PaymentTransaction, plan *models.SubscriptionPlan, adminID uuid.UUID, now time.Time) error {
	bill, err := txRepo.LatestPendingBill(ctx, txn.UserID, txn.PlanID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup pending bill")
	}
	if bill != nil {
		if err := txRepo.MarkBillPaid(ctx, bill.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle subscription bill")
		}
	}

	next := nextBillingDate(now, plan.BillingPeriodMonths)
	sub, err := txRepo.FindSubscriptionByUser(ctx, txn.UserID)
	switch {
	case err == nil:
		updates := map[string]any{
			"plan_id":           txn.PlanID,
			"status":            enums.SubscriptionStatusActive,
			"next_billing_date": next,
		}
		if err := txRepo.UpdateSubscription(ctx, sub.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate subscription")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = &models.Subscription{
			UserID:          txn.UserID,
			PlanID:          txn.PlanID,
			Status:          enums.SubscriptionStatusActive,
			NextBillingDate: &next,
		}
		if err := txRepo.CreateSubscription(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription")
		}
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription")
	}

	event := outbox.DomainEvent{
		EventType:     enums.OutboxEventSubscriptionActivated,
		AggregateType: enums.OutboxAggregateSubscription,
		AggregateID:   sub.ID,
		Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
		Data: payloads.SubscriptionActivatedEvent{
			SubscriptionID:  sub.ID,
			UserID:          txn.UserID,
			PlanID:          txn.PlanID,
			TransactionID:   txn.ID,
			NextBillingDate: &next,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue activation event")
	}
	return nil
}

func (s *service) loadPlan(ctx context.Context, planID uuid.UUID) (*models.SubscriptionPlan, error) {
	plan, err := s.repo.FindPlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup plan")
	}
	return plan, nil
}

func nextBillingDate(now time.Time, periodMonths int) time.Time {
	if periodMonths < 1 {
		periodMonths = 1
	}
	return now.AddDate(0, 0, billingPeriodDays*periodMonths)
}

func toTransactionDTOs(rows []models.PaymentTransaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromTransaction(&rows[i]))
	}
	return out
}

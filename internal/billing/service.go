package billing

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

type repository interface {
	CreateBill(ctx context.Context, bill *models.Bill) error
	FindBillByID(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	ListBillsByTenantUser(ctx context.Context, userID uuid.UUID) ([]models.Bill, error)
	ListBillsByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.Bill, error)
	AmountPaid(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error)
	UpdateBillStatus(ctx context.Context, billID uuid.UUID, status enums.BillStatus, paidDate *time.Time) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]models.Payment, error)
	SetPaymentDecision(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus, verifierID uuid.UUID, at time.Time) (int64, error)
	FindTenantUnitByID(ctx context.Context, id uuid.UUID) (*models.TenantUnit, error)
	FindTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo   repository
	DB     txRunner
	Outbox eventEmitter

	RepoForTx func(tx *gorm.DB) repository
	Now       func() time.Time
}

// Service owns the bill/payment ledger. Every payment mutation recomputes the
// bill's cached status in the same transaction.
type Service interface {
	CreateBill(ctx context.Context, managerID uuid.UUID, req CreateBillRequest) (*BillDTO, error)
	GetBill(ctx context.Context, actorID uuid.UUID, role enums.UserRole, billID uuid.UUID) (*BillDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]BillDTO, error)
	ListForProperty(ctx context.Context, managerID, propertyID uuid.UUID) ([]BillDTO, error)
	ListPayments(ctx context.Context, actorID uuid.UUID, role enums.UserRole, billID uuid.UUID) ([]PaymentDTO, error)
	SubmitPayment(ctx context.Context, userID uuid.UUID, billID uuid.UUID, req SubmitPaymentRequest) (*PaymentDTO, error)
	VerifyPayment(ctx context.Context, verifierID uuid.UUID, role enums.UserRole, paymentID uuid.UUID, req VerifyPaymentRequest) (*PaymentDTO, error)
}

type service struct {
	repo      repository
	db        txRunner
	outbox    eventEmitter
	repoForTx func(tx *gorm.DB) repository
	now       func() time.Time
}

// NewService builds a billing service.
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

// CreateBill raises a bill against an active tenancy owned by the manager.
func (s *service) CreateBill(ctx context.Context, managerID uuid.UUID, req CreateBillRequest) (*BillDTO, error) {
	billType, err := enums.ParseBillType(req.BillType)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid bill type")
	}
	if !req.Amount.GreaterThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	tenancy, err := s.repo.FindTenantUnitByID(ctx, req.TenancyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenancy not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenancy")
	}
	if !tenancy.IsActive(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tenancy is not active")
	}

	property, err := s.repo.FindPropertyByID(ctx, tenancy.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if property.OwnerID != managerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your property")
	}

	tenant, err := s.repo.FindTenantByID(ctx, tenancy.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant")
	}

	bill := &models.Bill{
		TenantID:   tenancy.TenantID,
		UnitID:     tenancy.UnitID,
		PropertyID: tenancy.PropertyID,
		BillType:   billType,
		Amount:     req.Amount,
		DueDate:    req.DueDate,
		Status:     enums.BillStatusPending,
		Notes:      req.Notes,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		if err := txRepo.CreateBill(ctx, bill); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bill")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventBillCreated,
			AggregateType: enums.OutboxAggregateBill,
			AggregateID:   bill.ID,
			Actor:         &outbox.ActorRef{UserID: managerID, Role: string(enums.UserRoleManager)},
			Data: payloads.BillCreatedEvent{
				BillID:       bill.ID,
				TenantUserID: tenant.UserID,
				PropertyID:   bill.PropertyID,
				BillType:     bill.BillType,
				Amount:       bill.Amount,
				DueDate:      bill.DueDate,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue bill event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromBill(bill, decimal.Zero), nil
}

// GetBill loads a bill with derived amounts for a participant.
func (s *service) GetBill(ctx context.Context, actorID uuid.UUID, role enums.UserRole, billID uuid.UUID) (*BillDTO, error) {
	bill, err := s.authorizedBill(ctx, actorID, role, billID)
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.AmountPaid(ctx, bill.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum payments")
	}
	return FromBill(bill, paid), nil
}

// ListMine returns the tenant's bills with derived amounts.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]BillDTO, error) {
	rows, err := s.repo.ListBillsByTenantUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bills")
	}
	return s.toDTOs(ctx, rows)
}

// ListForProperty returns a property's bills for its owner.
func (s *service) ListForProperty(ctx context.Context, managerID, propertyID uuid.UUID) ([]BillDTO, error) {
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

	rows, err := s.repo.ListBillsByProperty(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bills")
	}
	return s.toDTOs(ctx, rows)
}

// ListPayments returns a bill's payments for a participant.
func (s *service) ListPayments(ctx context.Context, actorID uuid.UUID, role enums.UserRole, billID uuid.UUID) ([]PaymentDTO, error) {
	if _, err := s.authorizedBill(ctx, actorID, role, billID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPaymentsByBill(ctx, billID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromPayment(&rows[i]))
	}
	return out, nil
}

// SubmitPayment records a tenant's remittance as pending approval and
// recomputes the bill inside the same transaction.
func (s *service) SubmitPayment(ctx context.Context, userID uuid.UUID, billID uuid.UUID, req SubmitPaymentRequest) (*PaymentDTO, error) {
	method, err := enums.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !req.Amount.GreaterThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	bill, err := s.authorizedBill(ctx, userID, enums.UserRoleTenant, billID)
	if err != nil {
		return nil, err
	}
	if bill.Status == enums.BillStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bill is cancelled")
	}
	if bill.Status == enums.BillStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bill is already paid")
	}

	tenant, err := s.repo.FindTenantByID(ctx, bill.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant")
	}
	property, err := s.repo.FindPropertyByID(ctx, bill.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}

	payment := &models.Payment{
		BillID:         bill.ID,
		Amount:         req.Amount,
		Method:         method,
		Status:         enums.PaymentStatusPendingApproval,
		ProofOfPayment: req.ProofOfPayment,
		Notes:          req.Notes,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		if err := txRepo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
		}
		if err := s.recomputeBill(ctx, txRepo, bill); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentSubmitted,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleTenant)},
			Data: payloads.PaymentSubmittedEvent{
				PaymentID:    payment.ID,
				BillID:       bill.ID,
				PropertyID:   bill.PropertyID,
				ManagerID:    property.OwnerID,
				TenantUserID: tenant.UserID,
				Amount:       payment.Amount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue payment event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromPayment(payment), nil
}

// VerifyPayment applies the manager's decision, recomputes the bill, and
// queues the tenant notification in one transaction.
func (s *service) VerifyPayment(ctx context.Context, verifierID uuid.UUID, role enums.UserRole, paymentID uuid.UUID, req VerifyPaymentRequest) (*PaymentDTO, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup payment")
	}
	if payment.Status != enums.PaymentStatusPendingApproval {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already decided")
	}

	bill, err := s.repo.FindBillByID(ctx, payment.BillID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup bill")
	}
	property, err := s.repo.FindPropertyByID(ctx, bill.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if role != enums.UserRoleAdmin && property.OwnerID != verifierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your property")
	}
	tenant, err := s.repo.FindTenantByID(ctx, bill.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant")
	}

	status := enums.PaymentStatusRejected
	eventType := enums.OutboxEventPaymentRejected
	if req.Approve {
		status = enums.PaymentStatusApproved
		eventType = enums.OutboxEventPaymentVerified
	}
	now := s.now()

	var billStatus enums.BillStatus
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		affected, err := txRepo.SetPaymentDecision(ctx, payment.ID, status, verifierID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decide payment")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already decided")
		}

		if err := s.recomputeBill(ctx, txRepo, bill); err != nil {
			return err
		}
		billStatus = bill.Status

		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: verifierID, Role: string(role)},
			Data: payloads.PaymentDecisionEvent{
				PaymentID:    payment.ID,
				BillID:       bill.ID,
				TenantUserID: tenant.UserID,
				Status:       status,
				BillStatus:   billStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue decision event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment.Status = status
	payment.VerifiedBy = &verifierID
	payment.VerifiedAt = &now
	return FromPayment(payment), nil
}

// recomputeBill refreshes the bill's cached status from its counted payments
// using the transaction-bound repo. The passed bill is updated in place.
func (s *service) recomputeBill(ctx context.Context, txRepo repository, bill *models.Bill) error {
	paid, err := txRepo.AmountPaid(ctx, bill.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum payments")
	}
	status, paidDate := recomputedStatus(bill, paid, s.now())
	if err := txRepo.UpdateBillStatus(ctx, bill.ID, status, paidDate); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update bill status")
	}
	bill.Status = status
	bill.PaidDate = paidDate
	return nil
}

func (s *service) authorizedBill(ctx context.Context, actorID uuid.UUID, role enums.UserRole, billID uuid.UUID) (*models.Bill, error) {
	bill, err := s.repo.FindBillByID(ctx, billID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bill not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup bill")
	}

	if role == enums.UserRoleAdmin {
		return bill, nil
	}

	tenant, err := s.repo.FindTenantByID(ctx, bill.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant")
	}
	if tenant.UserID == actorID {
		return bill, nil
	}

	property, err := s.repo.FindPropertyByID(ctx, bill.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if property.OwnerID == actorID {
		return bill, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your bill")
}

func (s *service) toDTOs(ctx context.Context, rows []models.Bill) ([]BillDTO, error) {
	out := make([]BillDTO, 0, len(rows))
	for i := range rows {
		paid, err := s.repo.AmountPaid(ctx, rows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum payments")
		}
		out = append(out, *FromBill(&rows[i], paid))
	}
	return out, nil
}

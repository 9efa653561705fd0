package billing

import (
	"context"
	"testing"
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

type fakeRepo struct {
	bills      map[uuid.UUID]*models.Bill
	payments   map[uuid.UUID]*models.Payment
	tenancies  map[uuid.UUID]*models.TenantUnit
	tenants    map[uuid.UUID]*models.Tenant
	properties map[uuid.UUID]*models.Property

	decisionAffected *int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bills:      map[uuid.UUID]*models.Bill{},
		payments:   map[uuid.UUID]*models.Payment{},
		tenancies:  map[uuid.UUID]*models.TenantUnit{},
		tenants:    map[uuid.UUID]*models.Tenant{},
		properties: map[uuid.UUID]*models.Property{},
	}
}

func (f *fakeRepo) CreateBill(_ context.Context, bill *models.Bill) error {
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	f.bills[bill.ID] = bill
	return nil
}

func (f *fakeRepo) FindBillByID(_ context.Context, id uuid.UUID) (*models.Bill, error) {
	bill, ok := f.bills[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *bill
	return &copied, nil
}

func (f *fakeRepo) ListBillsByTenantUser(_ context.Context, userID uuid.UUID) ([]models.Bill, error) {
	var out []models.Bill
	for _, bill := range f.bills {
		tenant, ok := f.tenants[bill.TenantID]
		if ok && tenant.UserID == userID {
			out = append(out, *bill)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListBillsByProperty(_ context.Context, propertyID uuid.UUID) ([]models.Bill, error) {
	var out []models.Bill
	for _, bill := range f.bills {
		if bill.PropertyID == propertyID {
			out = append(out, *bill)
		}
	}
	return out, nil
}

func (f *fakeRepo) AmountPaid(_ context.Context, billID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range f.payments {
		if p.BillID == billID && p.Status.CountsTowardPaid() {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepo) UpdateBillStatus(_ context.Context, billID uuid.UUID, status enums.BillStatus, paidDate *time.Time) error {
	bill, ok := f.bills[billID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	bill.Status = status
	bill.PaidDate = paidDate
	return nil
}

func (f *fakeRepo) CreatePayment(_ context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments[payment.ID] = payment
	return nil
}

func (f *fakeRepo) FindPaymentByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payment
	return &copied, nil
}

func (f *fakeRepo) ListPaymentsByBill(_ context.Context, billID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.BillID == billID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) SetPaymentDecision(_ context.Context, paymentID uuid.UUID, status enums.PaymentStatus, verifierID uuid.UUID, at time.Time) (int64, error) {
	if f.decisionAffected != nil {
		return *f.decisionAffected, nil
	}
	payment, ok := f.payments[paymentID]
	if !ok || payment.Status != enums.PaymentStatusPendingApproval {
		return 0, nil
	}
	payment.Status = status
	payment.VerifiedBy = &verifierID
	payment.VerifiedAt = &at
	return 1, nil
}

func (f *fakeRepo) FindTenantUnitByID(_ context.Context, id uuid.UUID) (*models.TenantUnit, error) {
	row, ok := f.tenancies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeRepo) FindTenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	row, ok := f.tenants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeRepo) FindPropertyByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	row, ok := f.properties[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	svc     Service
	repo    *fakeRepo
	emitter *fakeEmitter

	managerID    uuid.UUID
	tenantUserID uuid.UUID
	tenantID     uuid.UUID
	propertyID   uuid.UUID
	unitID       uuid.UUID
	tenancyID    uuid.UUID
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	emitter := &fakeEmitter{}
	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

	f := &fixture{
		repo:         repo,
		emitter:      emitter,
		managerID:    uuid.New(),
		tenantUserID: uuid.New(),
		tenantID:     uuid.New(),
		propertyID:   uuid.New(),
		unitID:       uuid.New(),
		tenancyID:    uuid.New(),
		now:          now,
	}

	repo.properties[f.propertyID] = &models.Property{
		ID:      f.propertyID,
		OwnerID: f.managerID,
		Status:  enums.PropertyStatusActive,
	}
	repo.tenants[f.tenantID] = &models.Tenant{
		ID:         f.tenantID,
		UserID:     f.tenantUserID,
		PropertyID: f.propertyID,
		Email:      "terry@example.com",
	}
	moveOut := now.AddDate(0, 6, 0)
	repo.tenancies[f.tenancyID] = &models.TenantUnit{
		ID:          f.tenancyID,
		TenantID:    f.tenantID,
		UnitID:      f.unitID,
		PropertyID:  f.propertyID,
		MoveInDate:  now.AddDate(0, -1, 0),
		MoveOutDate: &moveOut,
		MonthlyRent: decimal.NewFromInt(1200),
	}

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		DB:        fakeTxRunner{},
		Outbox:    emitter,
		RepoForTx: func(*gorm.DB) repository { return repo },
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) seedBill(t *testing.T, amount int64, dueDate time.Time) *models.Bill {
	t.Helper()
	bill := &models.Bill{
		ID:         uuid.New(),
		TenantID:   f.tenantID,
		UnitID:     f.unitID,
		PropertyID: f.propertyID,
		BillType:   enums.BillTypeRent,
		Amount:     decimal.NewFromInt(amount),
		DueDate:    dueDate,
		Status:     enums.BillStatusPending,
	}
	f.repo.bills[bill.ID] = bill
	return bill
}

func (f *fixture) seedPayment(billID uuid.UUID, amount int64, status enums.PaymentStatus) *models.Payment {
	payment := &models.Payment{
		ID:     uuid.New(),
		BillID: billID,
		Amount: decimal.NewFromInt(amount),
		Method: enums.PaymentMethodBankTransfer,
		Status: status,
	}
	f.repo.payments[payment.ID] = payment
	return payment
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != want {
		t.Fatalf("expected code %s, got %v", want, err)
	}
}

func TestCreateBillEmitsEvent(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.CreateBill(context.Background(), f.managerID, CreateBillRequest{
		TenancyID: f.tenancyID,
		BillType:  "rent",
		Amount:    decimal.NewFromInt(1200),
		DueDate:   f.now.AddDate(0, 0, 14),
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if dto.Status != enums.BillStatusPending {
		t.Fatalf("expected pending bill, got %s", dto.Status)
	}
	if !dto.AmountDue.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("expected full amount due, got %s", dto.AmountDue)
	}

	if len(f.emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.emitter.events))
	}
	event := f.emitter.events[0]
	if event.EventType != enums.OutboxEventBillCreated {
		t.Fatalf("expected bill.created, got %s", event.EventType)
	}
	data := event.Data.(payloads.BillCreatedEvent)
	if data.TenantUserID != f.tenantUserID {
		t.Fatal("expected tenant user id on the event payload")
	}
}

func TestCreateBillRejectsEndedTenancy(t *testing.T) {
	f := newFixture(t)
	past := f.now.AddDate(0, -1, 0)
	f.repo.tenancies[f.tenancyID].MoveOutDate = &past

	_, err := f.svc.CreateBill(context.Background(), f.managerID, CreateBillRequest{
		TenancyID: f.tenancyID,
		BillType:  "rent",
		Amount:    decimal.NewFromInt(1200),
		DueDate:   f.now,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateBillRejectsForeignProperty(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBill(context.Background(), uuid.New(), CreateBillRequest{
		TenancyID: f.tenancyID,
		BillType:  "utility",
		Amount:    decimal.NewFromInt(80),
		DueDate:   f.now,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestSubmitPaymentRecomputesToPartial(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 1200, f.now.AddDate(0, 0, 14))
	f.seedPayment(bill.ID, 400, enums.PaymentStatusCompleted)

	dto, err := f.svc.SubmitPayment(context.Background(), f.tenantUserID, bill.ID, SubmitPaymentRequest{
		Amount: decimal.NewFromInt(300),
		Method: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	if dto.Status != enums.PaymentStatusPendingApproval {
		t.Fatalf("expected pending_approval payment, got %s", dto.Status)
	}

	// Only the pre-existing completed payment counts. The fresh submission is
	// pending approval and must not move the bill to paid.
	stored := f.repo.bills[bill.ID]
	if stored.Status != enums.BillStatusPartial {
		t.Fatalf("expected partial bill, got %s", stored.Status)
	}

	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.OutboxEventPaymentSubmitted {
		t.Fatal("expected payment.submitted event")
	}
	data := f.emitter.events[0].Data.(payloads.PaymentSubmittedEvent)
	if data.ManagerID != f.managerID {
		t.Fatal("expected manager id on the event payload")
	}
}

func TestSubmitPaymentRejectsPaidBill(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 1200, f.now)
	bill.Status = enums.BillStatusPaid

	_, err := f.svc.SubmitPayment(context.Background(), f.tenantUserID, bill.ID, SubmitPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Method: "cash",
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSubmitPaymentRejectsStranger(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 1200, f.now)

	_, err := f.svc.SubmitPayment(context.Background(), uuid.New(), bill.ID, SubmitPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Method: "cash",
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestVerifyPaymentApprovesAndPaysBill(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 1200, f.now.AddDate(0, 0, 14))
	payment := f.seedPayment(bill.ID, 1200, enums.PaymentStatusPendingApproval)

	dto, err := f.svc.VerifyPayment(context.Background(), f.managerID, enums.UserRoleManager, payment.ID, VerifyPaymentRequest{Approve: true})
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if dto.Status != enums.PaymentStatusApproved {
		t.Fatalf("expected approved payment, got %s", dto.Status)
	}
	if dto.VerifiedBy == nil || *dto.VerifiedBy != f.managerID {
		t.Fatal("expected verifier recorded")
	}

	stored := f.repo.bills[bill.ID]
	if stored.Status != enums.BillStatusPaid {
		t.Fatalf("expected paid bill, got %s", stored.Status)
	}
	if stored.PaidDate == nil || !stored.PaidDate.Equal(f.now) {
		t.Fatal("expected paid_date stamped at verification time")
	}

	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.OutboxEventPaymentVerified {
		t.Fatal("expected payment.verified event")
	}
	data := f.emitter.events[0].Data.(payloads.PaymentDecisionEvent)
	if data.BillStatus != enums.BillStatusPaid {
		t.Fatalf("expected paid bill status on payload, got %s", data.BillStatus)
	}
}

func TestVerifyPaymentRejectionLeavesBillUnpaid(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 1200, f.now.AddDate(0, 0, 14))
	payment := f.seedPayment(bill.ID, 1200, enums.PaymentStatusPendingApproval)

	dto, err := f.svc.VerifyPayment(context.Background(), f.managerID, enums.UserRoleManager, payment.ID, VerifyPaymentRequest{Approve: false})
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if dto.Status != enums.PaymentStatusRejected {
		t.Fatalf("expected rejected payment, got %s", dto.Status)
	}

	stored := f.repo.bills[bill.ID]
	if stored.Status != enums.BillStatusPending {
		t.Fatalf("expected pending bill, got %s", stored.Status)
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.OutboxEventPaymentRejected {
		t.Fatal("expected payment.rejected event")
	}
}

func TestVerifyPaymentAlreadyDecided(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 1200, f.now)
	payment := f.seedPayment(bill.ID, 500, enums.PaymentStatusApproved)

	_, err := f.svc.VerifyPayment(context.Background(), f.managerID, enums.UserRoleManager, payment.ID, VerifyPaymentRequest{Approve: true})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestVerifyPaymentLostRaceConflicts(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 1200, f.now)
	payment := f.seedPayment(bill.ID, 500, enums.PaymentStatusPendingApproval)
	var affected int64
	f.repo.decisionAffected = &affected

	_, err := f.svc.VerifyPayment(context.Background(), f.managerID, enums.UserRoleManager, payment.ID, VerifyPaymentRequest{Approve: true})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if len(f.emitter.events) != 0 {
		t.Fatal("expected no events on a lost race")
	}
}

func TestVerifyPaymentAdminAllowedOnAnyProperty(t *testing.T) {
	f := newFixture(t)
	bill := f.seedBill(t, 600, f.now.AddDate(0, 0, 7))
	payment := f.seedPayment(bill.ID, 600, enums.PaymentStatusPendingApproval)

	adminID := uuid.New()
	dto, err := f.svc.VerifyPayment(context.Background(), adminID, enums.UserRoleAdmin, payment.ID, VerifyPaymentRequest{Approve: true})
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if dto.Status != enums.PaymentStatusApproved {
		t.Fatalf("expected approved payment, got %s", dto.Status)
	}
}

func TestRecomputedStatusRules(t *testing.T) {
	now := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	earlier := now.AddDate(0, 0, -3)

	cases := []struct {
		name       string
		bill       models.Bill
		paid       int64
		wantStatus enums.BillStatus
		wantPaidAt *time.Time
	}{
		{
			name:       "no payments before due date stays pending",
			bill:       models.Bill{Amount: decimal.NewFromInt(1000), DueDate: now.AddDate(0, 0, 5), Status: enums.BillStatusPending},
			paid:       0,
			wantStatus: enums.BillStatusPending,
		},
		{
			name:       "no payments past due date goes overdue",
			bill:       models.Bill{Amount: decimal.NewFromInt(1000), DueDate: now.AddDate(0, 0, -1), Status: enums.BillStatusPending},
			paid:       0,
			wantStatus: enums.BillStatusOverdue,
		},
		{
			name:       "partial coverage goes partial even past due",
			bill:       models.Bill{Amount: decimal.NewFromInt(1000), DueDate: now.AddDate(0, 0, -1), Status: enums.BillStatusOverdue},
			paid:       400,
			wantStatus: enums.BillStatusPartial,
		},
		{
			name:       "full coverage goes paid and stamps date",
			bill:       models.Bill{Amount: decimal.NewFromInt(1000), DueDate: now, Status: enums.BillStatusPartial},
			paid:       1000,
			wantStatus: enums.BillStatusPaid,
			wantPaidAt: &now,
		},
		{
			name:       "overpayment still paid",
			bill:       models.Bill{Amount: decimal.NewFromInt(1000), DueDate: now, Status: enums.BillStatusPartial},
			paid:       1100,
			wantStatus: enums.BillStatusPaid,
			wantPaidAt: &now,
		},
		{
			name:       "existing paid date is preserved",
			bill:       models.Bill{Amount: decimal.NewFromInt(1000), DueDate: now, Status: enums.BillStatusPaid, PaidDate: &earlier},
			paid:       1000,
			wantStatus: enums.BillStatusPaid,
			wantPaidAt: &earlier,
		},
		{
			name:       "cancelled is frozen",
			bill:       models.Bill{Amount: decimal.NewFromInt(1000), DueDate: now.AddDate(0, 0, -10), Status: enums.BillStatusCancelled},
			paid:       1000,
			wantStatus: enums.BillStatusCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, paidDate := recomputedStatus(&tc.bill, decimal.NewFromInt(tc.paid), now)
			if status != tc.wantStatus {
				t.Fatalf("expected %s, got %s", tc.wantStatus, status)
			}
			switch {
			case tc.wantPaidAt == nil && paidDate != nil:
				t.Fatalf("expected nil paid date, got %v", paidDate)
			case tc.wantPaidAt != nil && (paidDate == nil || !paidDate.Equal(*tc.wantPaidAt)):
				t.Fatalf("expected paid date %v, got %v", tc.wantPaidAt, paidDate)
			}
		})
	}
}

package inquiries

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
)

type fakeRepo struct {
	inquiries map[uuid.UUID]*models.Inquiry
	messages  []models.InquiryMessage
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{inquiries: map[uuid.UUID]*models.Inquiry{}}
}

func (f *fakeRepo) Create(_ context.Context, inquiry *models.Inquiry) error {
	if f.createErr != nil {
		return f.createErr
	}
	if inquiry.ID == uuid.Nil {
		inquiry.ID = uuid.New()
	}
	f.inquiries[inquiry.ID] = inquiry
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Inquiry, error) {
	if i, ok := f.inquiries[id]; ok {
		copied := *i
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindActive(_ context.Context, tenantID, propertyID uuid.UUID, unitID *uuid.UUID) (*models.Inquiry, error) {
	for _, i := range f.inquiries {
		if i.TenantID != tenantID || i.PropertyID != propertyID || !i.Status.IsActive() {
			continue
		}
		if (i.UnitID == nil) != (unitID == nil) {
			continue
		}
		if unitID != nil && *i.UnitID != *unitID {
			continue
		}
		copied := *i
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]models.Inquiry, error) {
	var out []models.Inquiry
	for _, i := range f.inquiries {
		if i.TenantID == tenantID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByManager(_ context.Context, managerID uuid.UUID, status *enums.InquiryStatus) ([]models.Inquiry, error) {
	var out []models.Inquiry
	for _, i := range f.inquiries {
		if i.PropertyManagerID != managerID {
			continue
		}
		if status != nil && i.Status != *status {
			continue
		}
		out = append(out, *i)
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.InquiryStatus) error {
	f.inquiries[id].Status = status
	return nil
}

func (f *fakeRepo) CreateMessage(_ context.Context, message *models.InquiryMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeRepo) ListMessages(_ context.Context, inquiryID uuid.UUID) ([]models.InquiryMessage, error) {
	var out []models.InquiryMessage
	for _, m := range f.messages {
		if m.InquiryID == inquiryID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakePropertyFinder struct {
	properties map[uuid.UUID]*models.Property
}

func (f *fakePropertyFinder) FindPropertyByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	if p, ok := f.properties[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeUserFinder struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserFinder) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
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
	repo     *fakeRepo
	emitter  *fakeEmitter
	svc      Service
	tenant   *models.User
	manager  uuid.UUID
	property *models.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	emitter := &fakeEmitter{}
	managerID := uuid.New()
	property := &models.Property{
		ID:      uuid.New(),
		OwnerID: managerID,
		Status:  enums.PropertyStatusActive,
	}
	tenant := &models.User{
		ID:        uuid.New(),
		Email:     "tenant@example.com",
		FirstName: "Terry",
		LastName:  "Tenant",
		Role:      enums.UserRoleTenant,
	}

	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Properties: &fakePropertyFinder{properties: map[uuid.UUID]*models.Property{property.ID: property}},
		Users:      &fakeUserFinder{users: map[uuid.UUID]*models.User{tenant.ID: tenant}},
		DB:         fakeTxRunner{},
		Outbox:     emitter,
		RepoForTx:  func(*gorm.DB) repository { return repo },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{repo: repo, emitter: emitter, svc: svc, tenant: tenant, manager: managerID, property: property}
}

func TestStartInquiryEmitsReceivedEvent(t *testing.T) {
	fx := newFixture(t)

	dto, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{
		PropertyID: fx.property.ID,
		Message:    "Is the 2BR still available?",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if dto.Status != enums.InquiryStatusPending {
		t.Fatalf("expected pending, got %s", dto.Status)
	}
	if dto.PropertyManagerID != fx.manager {
		t.Fatal("manager not resolved from property owner")
	}
	if dto.ContactEmail != fx.tenant.Email {
		t.Fatal("contact snapshot missing")
	}
	if len(fx.emitter.events) != 1 || fx.emitter.events[0].EventType != enums.OutboxEventInquiryReceived {
		t.Fatalf("expected inquiry.received event, got %+v", fx.emitter.events)
	}
	if len(fx.repo.messages) != 1 {
		t.Fatalf("expected initial thread message, got %d", len(fx.repo.messages))
	}
}

func TestStartInquiryDuplicateActiveConflicts(t *testing.T) {
	fx := newFixture(t)

	req := StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"}
	if _, err := fx.svc.Start(context.Background(), fx.tenant.ID, req); err != nil {
		t.Fatalf("first start: %v", err)
	}

	_, err := fx.svc.Start(context.Background(), fx.tenant.ID, req)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStartInquiryUnitScopedDuplicates(t *testing.T) {
	fx := newFixture(t)
	unitA := uuid.New()
	unitB := uuid.New()

	if _, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, UnitID: &unitA, Message: "unit A"}); err != nil {
		t.Fatalf("unit A start: %v", err)
	}
	// Same property, different unit: allowed.
	if _, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, UnitID: &unitB, Message: "unit B"}); err != nil {
		t.Fatalf("unit B start: %v", err)
	}
	// Same unit again: conflict.
	_, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, UnitID: &unitA, Message: "again"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStartInquiryRaceMapsUniqueViolation(t *testing.T) {
	fx := newFixture(t)
	fx.repo.createErr = fmt.Errorf(`duplicate key value violates unique constraint "ux_inquiries_active"`)

	_, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStartInquiryInactivePropertyRejected(t *testing.T) {
	fx := newFixture(t)
	fx.property.Status = enums.PropertyStatusPendingApproval

	_, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRespondMarksRespondedAndEmits(t *testing.T) {
	fx := newFixture(t)
	dto, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	updated, err := fx.svc.Respond(context.Background(), fx.manager, dto.ID, AppendMessageRequest{Body: "Yes, come see it Friday."})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if updated.Status != enums.InquiryStatusResponded {
		t.Fatalf("expected responded, got %s", updated.Status)
	}

	var gotResponded bool
	for _, e := range fx.emitter.events {
		if e.EventType == enums.OutboxEventInquiryResponded {
			gotResponded = true
		}
	}
	if !gotResponded {
		t.Fatal("expected inquiry.responded event")
	}
}

func TestRespondByStrangerForbidden(t *testing.T) {
	fx := newFixture(t)
	dto, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err = fx.svc.Respond(context.Background(), uuid.New(), dto.ID, AppendMessageRequest{Body: "hi"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMarkReadOnlyFromPending(t *testing.T) {
	fx := newFixture(t)
	dto, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	updated, err := fx.svc.MarkRead(context.Background(), fx.manager, dto.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if updated.Status != enums.InquiryStatusRead {
		t.Fatalf("expected read, got %s", updated.Status)
	}

	_, err = fx.svc.MarkRead(context.Background(), fx.manager, dto.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTerminalInquiryRejectsFurtherTransitions(t *testing.T) {
	fx := newFixture(t)
	dto, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := fx.svc.UpdateStatus(context.Background(), fx.manager, dto.ID, UpdateStatusRequest{Status: "closed"}); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = fx.svc.UpdateStatus(context.Background(), fx.manager, dto.ID, UpdateStatusRequest{Status: "spam"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	_, err = fx.svc.AppendMessage(context.Background(), fx.tenant.ID, dto.ID, AppendMessageRequest{Body: "anyone?"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on closed thread, got %v", err)
	}
}

func TestClosedInquiryAllowsNewInquiry(t *testing.T) {
	fx := newFixture(t)
	dto, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "hello"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fx.svc.UpdateStatus(context.Background(), fx.manager, dto.ID, UpdateStatusRequest{Status: "closed"}); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := fx.svc.Start(context.Background(), fx.tenant.ID, StartInquiryRequest{PropertyID: fx.property.ID, Message: "second try"}); err != nil {
		t.Fatalf("restart after close: %v", err)
	}
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
	"github.com/rentfolio/rentfolio-backend/pkg/mailer"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox/payloads"
)

type fakeSource struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    map[uuid.UUID]string
}

func (f *fakeSource) FetchUnpublished(int, int) ([]models.OutboxEvent, error) {
	return f.rows, nil
}

func (f *fakeSource) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeSource) MarkFailed(id uuid.UUID, err error) error {
	if f.failed == nil {
		f.failed = map[uuid.UUID]string{}
	}
	f.failed[id] = err.Error()
	return nil
}

type fakeWriter struct {
	created []*models.Notification
	err     error
}

func (f *fakeWriter) Create(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func eventRow(t *testing.T, eventType enums.OutboxEventType, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   json.RawMessage(envelope),
	}
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	source     *fakeSource
	writer     *fakeWriter
	users      *fakeUsers
	sender     *fakeSender
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	source := &fakeSource{}
	writer := &fakeWriter{}
	users := &fakeUsers{users: map[uuid.UUID]*models.User{}}
	sender := &fakeSender{}

	dispatcher, err := NewDispatcher(DispatcherParams{
		Source: source,
		Writer: writer,
		Users:  users,
		Mailer: sender,
		Config: config.OutboxConfig{BatchSize: 50, MaxAttempts: 10},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return &dispatcherFixture{
		dispatcher: dispatcher,
		source:     source,
		writer:     writer,
		users:      users,
		sender:     sender,
	}
}

func (f *dispatcherFixture) addUser(id uuid.UUID, email string) {
	f.users.users[id] = &models.User{
		ID:        id,
		Email:     email,
		FirstName: "Pat",
		LastName:  "Recipient",
	}
}

func TestDrainPublishesBillCreated(t *testing.T) {
	f := newDispatcherFixture(t)
	tenantUserID := uuid.New()
	f.addUser(tenantUserID, "tenant@example.com")

	billID := uuid.New()
	row := eventRow(t, enums.OutboxEventBillCreated, payloads.BillCreatedEvent{
		BillID:       billID,
		TenantUserID: tenantUserID,
		BillType:     enums.BillTypeRent,
		Amount:       decimal.NewFromInt(1200),
		DueDate:      time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	f.source.rows = []models.OutboxEvent{row}

	if err := f.dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if len(f.writer.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.writer.created))
	}
	created := f.writer.created[0]
	if created.UserID != tenantUserID || created.Type != enums.NotificationTypeBillCreated {
		t.Fatalf("unexpected notification: %+v", created)
	}
	if created.EntityType == nil || *created.EntityType != enums.EntityTypeBill || *created.EntityID != billID {
		t.Fatal("expected bill entity reference")
	}

	if len(f.sender.sent) != 1 || f.sender.sent[0].ToEmail != "tenant@example.com" {
		t.Fatal("expected email to the tenant")
	}
	if len(f.source.published) != 1 || f.source.published[0] != row.ID {
		t.Fatal("expected event marked published")
	}
}

func TestDrainRoutesPaymentSubmittedToManager(t *testing.T) {
	f := newDispatcherFixture(t)
	managerID := uuid.New()
	f.addUser(managerID, "manager@example.com")

	row := eventRow(t, enums.OutboxEventPaymentSubmitted, payloads.PaymentSubmittedEvent{
		PaymentID: uuid.New(),
		BillID:    uuid.New(),
		ManagerID: managerID,
		Amount:    decimal.NewFromInt(400),
	})
	f.source.rows = []models.OutboxEvent{row}

	if err := f.dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(f.writer.created) != 1 || f.writer.created[0].UserID != managerID {
		t.Fatal("expected notification addressed to the manager")
	}
}

func TestDrainEmailFailureStillPublishes(t *testing.T) {
	f := newDispatcherFixture(t)
	ownerID := uuid.New()
	f.addUser(ownerID, "owner@example.com")
	f.sender.err = errors.New("smtp down")

	row := eventRow(t, enums.OutboxEventPropertyApproved, payloads.PropertyReviewedEvent{
		PropertyID: uuid.New(),
		OwnerID:    ownerID,
		Status:     enums.PropertyStatusActive,
	})
	f.source.rows = []models.OutboxEvent{row}

	if err := f.dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(f.writer.created) != 1 {
		t.Fatal("expected notification despite email failure")
	}
	if len(f.source.published) != 1 {
		t.Fatal("expected event published despite email failure")
	}
}

func TestDrainWriterFailureMarksFailed(t *testing.T) {
	f := newDispatcherFixture(t)
	f.writer.err = errors.New("insert failed")

	row := eventRow(t, enums.OutboxEventInquiryResponded, payloads.InquiryRespondedEvent{
		InquiryID: uuid.New(),
		TenantID:  uuid.New(),
	})
	f.source.rows = []models.OutboxEvent{row}

	if err := f.dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(f.source.published) != 0 {
		t.Fatal("expected no publish on writer failure")
	}
	if _, ok := f.source.failed[row.ID]; !ok {
		t.Fatal("expected event marked failed")
	}
}

func TestDrainUnknownEventMarksFailed(t *testing.T) {
	f := newDispatcherFixture(t)
	row := eventRow(t, enums.OutboxEventType("mystery.event"), map[string]string{})
	f.source.rows = []models.OutboxEvent{row}

	if err := f.dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if _, ok := f.source.failed[row.ID]; !ok {
		t.Fatal("expected unknown event marked failed")
	}
}

func TestRenderEventRejectionIncludesReason(t *testing.T) {
	raw, _ := json.Marshal(payloads.PropertyReviewedEvent{
		PropertyID: uuid.New(),
		OwnerID:    uuid.New(),
		Status:     enums.PropertyStatusRejected,
		Reason:     "missing photos",
	})
	items, err := renderEvent(enums.OutboxEventPropertyRejected, raw)
	if err != nil {
		t.Fatalf("renderEvent: %v", err)
	}
	if len(items) != 1 || items[0].kind != enums.NotificationTypePropertyRejected {
		t.Fatal("expected one rejection delivery")
	}
	if items[0].message != "Your property listing was rejected: missing photos" {
		t.Fatalf("unexpected message %q", items[0].message)
	}
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
	"github.com/rentfolio/rentfolio-backend/pkg/mailer"
	"github.com/rentfolio/rentfolio-backend/pkg/metrics"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox/payloads"
)

type outboxSource interface {
	FetchUnpublished(limit int, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type recipientDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// DispatcherParams groups dispatcher dependencies.
type DispatcherParams struct {
	Source  outboxSource
	Writer  notificationWriter
	Users   recipientDirectory
	Mailer  mailer.Sender
	Metrics *metrics.DispatcherMetrics
	Config  config.OutboxConfig
	Logger  *logger.Logger
}

// Dispatcher drains the outbox and fans events out to notification rows and
// best-effort email. Notification persistence failing fails the event so it
// is retried; email failing does not.
type Dispatcher struct {
	source  outboxSource
	writer  notificationWriter
	users   recipientDirectory
	mail    mailer.Sender
	metrics *metrics.DispatcherMetrics
	cfg     config.OutboxConfig
	logg    *logger.Logger
}

// NewDispatcher builds an outbox dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Source == nil {
		return nil, errors.New("source is required")
	}
	if params.Writer == nil {
		return nil, errors.New("writer is required")
	}
	if params.Users == nil {
		return nil, errors.New("users is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Dispatcher{
		source:  params.Source,
		writer:  params.Writer,
		users:   params.Users,
		mail:    params.Mailer,
		metrics: params.Metrics,
		cfg:     params.Config,
		logg:    params.Logger,
	}, nil
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	interval := time.Duration(d.cfg.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logg.Info(ctx, "dispatcher.started")
	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "dispatcher.stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				d.logg.Error(ctx, "dispatcher.drain_failed", err)
			}
		}
	}
}

// Drain handles one batch of unpublished events.
func (d *Dispatcher) Drain(ctx context.Context) error {
	batchSize := d.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	rows, err := d.source.FetchUnpublished(batchSize, d.cfg.MaxAttempts)
	if err != nil {
		return fmt.Errorf("fetch unpublished: %w", err)
	}
	d.metrics.ObserveBatchSize(len(rows))

	var errs error
	for i := range rows {
		row := &rows[i]
		started := time.Now()
		handleErr := d.handle(ctx, row)
		d.metrics.ObserveDuration(string(row.EventType), time.Since(started))

		if handleErr != nil {
			d.metrics.IncFailed(string(row.EventType))
			logCtx := d.logg.WithFields(ctx, map[string]any{
				"event_id":   row.ID.String(),
				"event_type": row.EventType,
				"attempt":    row.AttemptCount + 1,
			})
			d.logg.Error(logCtx, "dispatcher.event_failed", handleErr)
			if markErr := d.source.MarkFailed(row.ID, handleErr); markErr != nil {
				errs = multierr.Append(errs, fmt.Errorf("mark failed %s: %w", row.ID, markErr))
			}
			continue
		}

		if markErr := d.source.MarkPublished(row.ID); markErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark published %s: %w", row.ID, markErr))
			continue
		}
		d.metrics.IncPublished(string(row.EventType))
	}
	return errs
}

// delivery is one recipient-facing rendering of an event.
type delivery struct {
	userID     uuid.UUID
	kind       enums.NotificationType
	title      string
	message    string
	entityType enums.EntityType
	entityID   uuid.UUID
}

func (d *Dispatcher) handle(ctx context.Context, row *models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	deliveries, err := renderEvent(row.EventType, envelope.Data)
	if err != nil {
		return err
	}

	for _, item := range deliveries {
		notification := &models.Notification{
			UserID:     item.userID,
			Type:       item.kind,
			Title:      item.title,
			Message:    item.message,
			EntityType: &item.entityType,
			EntityID:   &item.entityID,
		}
		if err := d.writer.Create(ctx, notification); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		d.sendEmail(ctx, item)
	}
	return nil
}

// sendEmail is best-effort. A bounced or failed send never blocks the event.
func (d *Dispatcher) sendEmail(ctx context.Context, item delivery) {
	if d.mail == nil {
		return
	}
	user, err := d.users.FindByID(ctx, item.userID)
	if err != nil {
		d.logg.Error(ctx, "dispatcher.recipient_lookup_failed", err)
		return
	}
	msg := mailer.Message{
		ToEmail:  user.Email,
		ToName:   user.FirstName + " " + user.LastName,
		Subject:  item.title,
		TextBody: item.message,
	}
	if err := d.mail.Send(ctx, msg); err != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{"notification_type": item.kind})
		d.logg.Error(logCtx, "dispatcher.email_failed", err)
	}
}

// renderEvent maps an outbox event onto its recipient deliveries.
func renderEvent(eventType enums.OutboxEventType, data json.RawMessage) ([]delivery, error) {
	switch eventType {
	case enums.OutboxEventInquiryReceived:
		var p payloads.InquiryReceivedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return []delivery{{
			userID:     p.PropertyManagerID,
			kind:       enums.NotificationTypeInquiryReceived,
			title:      "New rental inquiry",
			message:    fmt.Sprintf("A prospective tenant (%s) sent an inquiry about your property.", p.ContactEmail),
			entityType: enums.EntityTypeInquiry,
			entityID:   p.InquiryID,
		}}, nil

	case enums.OutboxEventInquiryResponded:
		var p payloads.InquiryRespondedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return []delivery{{
			userID:     p.TenantID,
			kind:       enums.NotificationTypeInquiryResponse,
			title:      "Reply to your inquiry",
			message:    "The property manager replied to your inquiry.",
			entityType: enums.EntityTypeInquiry,
			entityID:   p.InquiryID,
		}}, nil

	case enums.OutboxEventTenantAssigned:
		var p payloads.TenancyAssignedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return []delivery{{
			userID:     p.TenantUserID,
			kind:       enums.NotificationTypeTenantAssigned,
			title:      "You have been assigned a unit",
			message:    fmt.Sprintf("Your tenancy starts on %s. Monthly rent is %s.", p.MoveInDate.Format("2006-01-02"), p.MonthlyRent.StringFixed(2)),
			entityType: enums.EntityTypeTenancy,
			entityID:   p.TenancyID,
		}}, nil

	case enums.OutboxEventBillCreated:
		var p payloads.BillCreatedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return []delivery{{
			userID:     p.TenantUserID,
			kind:       enums.NotificationTypeBillCreated,
			title:      "New bill issued",
			message:    fmt.Sprintf("A %s bill of %s is due on %s.", p.BillType, p.Amount.StringFixed(2), p.DueDate.Format("2006-01-02")),
			entityType: enums.EntityTypeBill,
			entityID:   p.BillID,
		}}, nil

	case enums.OutboxEventPaymentSubmitted:
		var p payloads.PaymentSubmittedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return []delivery{{
			userID:     p.ManagerID,
			kind:       enums.NotificationTypePaymentSubmitted,
			title:      "Payment awaiting verification",
			message:    fmt.Sprintf("A tenant submitted a payment of %s for review.", p.Amount.StringFixed(2)),
			entityType: enums.EntityTypePayment,
			entityID:   p.PaymentID,
		}}, nil

	case enums.OutboxEventPaymentVerified:
		var p payloads.PaymentDecisionEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return []delivery{{
			userID:     p.TenantUserID,
			kind:       enums.NotificationTypePaymentVerified,
			title:      "Payment approved",
			message:    fmt.Sprintf("Your payment was approved. The bill is now %s.", p.BillStatus),
			entityType: enums.EntityTypePayment,
			entityID:   p.PaymentID,
		}}, nil

	case enums.OutboxEventPaymentRejected:
		var p payloads.PaymentDecisionEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return []delivery{{
			userID:     p.TenantUserID,
			kind:       enums.NotificationTypePaymentRejected,
			title:      "Payment rejected",
			message:    "Your payment could not be verified. Please contact your property manager.",
			entityType: enums.EntityTypePayment,
			entityID:   p.PaymentID,
		}}, nil

	case enums.OutboxEventPropertyApproved, enums.OutboxEventPropertyRejected:
		var p payloads.PropertyReviewedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		item := delivery{
			userID:     p.OwnerID,
			entityType: enums.EntityTypeProperty,
			entityID:   p.PropertyID,
		}
		if eventType == enums.OutboxEventPropertyApproved {
			item.kind = enums.NotificationTypePropertyApproved
			item.title = "Property approved"
			item.message = "Your property listing is now live."
		} else {
			item.kind = enums.NotificationTypePropertyRejected
			item.title = "Property rejected"
			item.message = "Your property listing was rejected."
			if p.Reason != "" {
				item.message = fmt.Sprintf("Your property listing was rejected: %s", p.Reason)
			}
		}
		return []delivery{item}, nil

	case enums.OutboxEventSubscriptionActivated:
		var p payloads.SubscriptionActivatedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		item := delivery{
			userID:     p.UserID,
			kind:       enums.NotificationTypeSubscriptionActivated,
			title:      "Subscription activated",
			message:    "Your payment was verified and your subscription is active.",
			entityType: enums.EntityTypeSubscription,
			entityID:   p.SubscriptionID,
		}
		if p.NextBillingDate != nil {
			item.message = fmt.Sprintf("Your payment was verified and your subscription is active. Next billing date: %s.", p.NextBillingDate.Format("2006-01-02"))
		}
		return []delivery{item}, nil

	default:
		return nil, fmt.Errorf("unhandled event type %q", eventType)
	}
}

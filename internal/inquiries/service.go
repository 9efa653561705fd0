package inquiries

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db"
	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox/payloads"
)

const activeInquiryConstraint = "ux_inquiries_active"

type repository interface {
	Create(ctx context.Context, inquiry *models.Inquiry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	FindActive(ctx context.Context, tenantID, propertyID uuid.UUID, unitID *uuid.UUID) (*models.Inquiry, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Inquiry, error)
	ListByManager(ctx context.Context, managerID uuid.UUID, status *enums.InquiryStatus) ([]models.Inquiry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InquiryStatus) error
	CreateMessage(ctx context.Context, message *models.InquiryMessage) error
	ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]models.InquiryMessage, error)
}

type propertyFinder interface {
	FindPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the inquiries service.
type ServiceParams struct {
	Repo       repository
	Properties propertyFinder
	Users      userFinder
	DB         txRunner
	Outbox     eventEmitter

	RepoForTx func(tx *gorm.DB) repository
}

// Service owns the inquiry lifecycle from first contact to terminal status.
type Service interface {
	Start(ctx context.Context, tenantID uuid.UUID, req StartInquiryRequest) (*InquiryDTO, error)
	ListMine(ctx context.Context, tenantID uuid.UUID) ([]InquiryDTO, error)
	ListForManager(ctx context.Context, managerID uuid.UUID, status string) ([]InquiryDTO, error)
	GetThread(ctx context.Context, actorID uuid.UUID, inquiryID uuid.UUID) (*InquiryDTO, []MessageDTO, error)
	AppendMessage(ctx context.Context, actorID uuid.UUID, inquiryID uuid.UUID, req AppendMessageRequest) (*MessageDTO, error)
	MarkRead(ctx context.Context, managerID, inquiryID uuid.UUID) (*InquiryDTO, error)
	Respond(ctx context.Context, managerID, inquiryID uuid.UUID, req AppendMessageRequest) (*InquiryDTO, error)
	UpdateStatus(ctx context.Context, managerID, inquiryID uuid.UUID, req UpdateStatusRequest) (*InquiryDTO, error)
}

type service struct {
	repo       repository
	properties propertyFinder
	users      userFinder
	db         txRunner
	outbox     eventEmitter
	repoForTx  func(tx *gorm.DB) repository
}

// NewService builds an inquiries service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Properties == nil {
		return nil, errors.New("properties finder is required")
	}
	if params.Users == nil {
		return nil, errors.New("users finder is required")
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
	return &service{
		repo:       params.Repo,
		properties: params.Properties,
		users:      params.Users,
		db:         params.DB,
		outbox:     params.Outbox,
		repoForTx:  repoForTx,
	}, nil
}

// Start opens an inquiry. At most one active inquiry may exist per
// (tenant, property, unit); the application check is backed by a partial
// unique index, so a lost race still surfaces as a conflict.
func (s *service) Start(ctx context.Context, tenantID uuid.UUID, req StartInquiryRequest) (*InquiryDTO, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	property, err := s.properties.FindPropertyByID(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup property")
	}
	if property.Status != enums.PropertyStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "property is not accepting inquiries")
	}

	if _, err := s.repo.FindActive(ctx, tenantID, req.PropertyID, req.UnitID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active inquiry already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active inquiry")
	}

	tenant, err := s.users.FindByID(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant")
	}

	inquiry := &models.Inquiry{
		PropertyID:        req.PropertyID,
		UnitID:            req.UnitID,
		TenantID:          tenantID,
		PropertyManagerID: property.OwnerID,
		Status:            enums.InquiryStatusPending,
		Message:           req.Message,
		ContactEmail:      tenant.Email,
		ContactName:       strings.TrimSpace(tenant.FirstName + " " + tenant.LastName),
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		if err := txRepo.Create(ctx, inquiry); err != nil {
			if db.IsUniqueViolation(err, activeInquiryConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "an active inquiry already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create inquiry")
		}
		if err := txRepo.CreateMessage(ctx, &models.InquiryMessage{
			InquiryID: inquiry.ID,
			SenderID:  tenantID,
			Body:      req.Message,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create message")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventInquiryReceived,
			AggregateType: enums.OutboxAggregateInquiry,
			AggregateID:   inquiry.ID,
			Actor:         &outbox.ActorRef{UserID: tenantID, Role: string(enums.UserRoleTenant)},
			Data: payloads.InquiryReceivedEvent{
				InquiryID:         inquiry.ID,
				PropertyID:        inquiry.PropertyID,
				UnitID:            inquiry.UnitID,
				TenantID:          inquiry.TenantID,
				PropertyManagerID: inquiry.PropertyManagerID,
				ContactEmail:      inquiry.ContactEmail,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue inquiry event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(inquiry), nil
}

// ListMine returns the tenant's inquiries.
func (s *service) ListMine(ctx context.Context, tenantID uuid.UUID) ([]InquiryDTO, error) {
	rows, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inquiries")
	}
	return toDTOs(rows), nil
}

// ListForManager returns inquiries on the manager's properties, optionally
// filtered by status.
func (s *service) ListForManager(ctx context.Context, managerID uuid.UUID, status string) ([]InquiryDTO, error) {
	var filter *enums.InquiryStatus
	if status != "" {
		parsed, err := enums.ParseInquiryStatus(status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inquiry status")
		}
		filter = &parsed
	}
	rows, err := s.repo.ListByManager(ctx, managerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inquiries")
	}
	return toDTOs(rows), nil
}

// GetThread loads an inquiry with its messages for a participant.
func (s *service) GetThread(ctx context.Context, actorID uuid.UUID, inquiryID uuid.UUID) (*InquiryDTO, []MessageDTO, error) {
	inquiry, err := s.participantInquiry(ctx, actorID, inquiryID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.repo.ListMessages(ctx, inquiryID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list messages")
	}
	out := make([]MessageDTO, 0, len(messages))
	for i := range messages {
		out = append(out, *MessageFromModel(&messages[i]))
	}
	return FromModel(inquiry), out, nil
}

// AppendMessage adds a tenant message to an open thread.
func (s *service) AppendMessage(ctx context.Context, actorID uuid.UUID, inquiryID uuid.UUID, req AppendMessageRequest) (*MessageDTO, error) {
	inquiry, err := s.participantInquiry(ctx, actorID, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry is closed")
	}

	message := &models.InquiryMessage{
		InquiryID: inquiry.ID,
		SenderID:  actorID,
		Body:      req.Body,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create message")
	}
	return MessageFromModel(message), nil
}

// MarkRead moves a pending inquiry to read.
func (s *service) MarkRead(ctx context.Context, managerID, inquiryID uuid.UUID) (*InquiryDTO, error) {
	inquiry, err := s.managerInquiry(ctx, managerID, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status != enums.InquiryStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry is not pending")
	}
	if err := s.repo.UpdateStatus(ctx, inquiry.ID, enums.InquiryStatusRead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update status")
	}
	inquiry.Status = enums.InquiryStatusRead
	return FromModel(inquiry), nil
}

// Respond appends the manager's reply, marks the inquiry responded, and
// queues the tenant notification event transactionally.
func (s *service) Respond(ctx context.Context, managerID, inquiryID uuid.UUID, req AppendMessageRequest) (*InquiryDTO, error) {
	inquiry, err := s.managerInquiry(ctx, managerID, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry is closed")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repoForTx(tx)
		if err := txRepo.CreateMessage(ctx, &models.InquiryMessage{
			InquiryID: inquiry.ID,
			SenderID:  managerID,
			Body:      req.Body,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create message")
		}
		if err := txRepo.UpdateStatus(ctx, inquiry.ID, enums.InquiryStatusResponded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventInquiryResponded,
			AggregateType: enums.OutboxAggregateInquiry,
			AggregateID:   inquiry.ID,
			Actor:         &outbox.ActorRef{UserID: managerID, Role: string(enums.UserRoleManager)},
			Data: payloads.InquiryRespondedEvent{
				InquiryID: inquiry.ID,
				TenantID:  inquiry.TenantID,
				SenderID:  managerID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue response event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inquiry.Status = enums.InquiryStatusResponded
	return FromModel(inquiry), nil
}

// UpdateStatus applies a terminal manager transition (closed or spam).
func (s *service) UpdateStatus(ctx context.Context, managerID, inquiryID uuid.UUID, req UpdateStatusRequest) (*InquiryDTO, error) {
	status, err := enums.ParseInquiryStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inquiry status")
	}
	if status != enums.InquiryStatusClosed && status != enums.InquiryStatusSpam {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be closed or spam")
	}

	inquiry, err := s.managerInquiry(ctx, managerID, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry already finalized")
	}

	if err := s.repo.UpdateStatus(ctx, inquiry.ID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update status")
	}
	inquiry.Status = status
	return FromModel(inquiry), nil
}

func (s *service) participantInquiry(ctx context.Context, actorID, inquiryID uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.loadInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.TenantID != actorID && inquiry.PropertyManagerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant")
	}
	return inquiry, nil
}

func (s *service) managerInquiry(ctx context.Context, managerID, inquiryID uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.loadInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.PropertyManagerID != managerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your inquiry")
	}
	return inquiry, nil
}

func (s *service) loadInquiry(ctx context.Context, inquiryID uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.repo.FindByID(ctx, inquiryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup inquiry")
	}
	return inquiry, nil
}

func toDTOs(rows []models.Inquiry) []InquiryDTO {
	out := make([]InquiryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

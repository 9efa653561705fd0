package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/pagination"
)

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int, cursor *pagination.Cursor) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

// NotificationDTO is the transport shape for one in-app notification.
type NotificationDTO struct {
	ID         uuid.UUID              `json:"id"`
	Type       enums.NotificationType `json:"type"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	EntityType *enums.EntityType      `json:"entity_type,omitempty"`
	EntityID   *uuid.UUID             `json:"entity_id,omitempty"`
	ReadAt     *time.Time             `json:"read_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ListResult is one cursor page of notifications.
type ListResult struct {
	Items      []NotificationDTO `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// UnreadCountResult wraps the unread counter for JSON transport.
type UnreadCountResult struct {
	Unread int64 `json:"unread"`
}

// Service reads and mutates a user's notification feed.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (*UnreadCountResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo repository
	now  func() time.Time
}

// NewService builds a notifications service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns one cursor page of the caller's notifications, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.List(ctx, userID, unreadOnly, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}

	result := &ListResult{Items: make([]NotificationDTO, 0, limit)}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		result.Items = append(result.Items, fromModel(&rows[i]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

// UnreadCount returns how many notifications the caller has not read.
func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (*UnreadCountResult, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count notifications")
	}
	return &UnreadCountResult{Unread: count}, nil
}

// MarkRead stamps one of the caller's unread notifications.
func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	affected, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead stamps every unread notification the caller has.
func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notifications read")
	}
	return affected, nil
}

func fromModel(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		ReadAt:     n.ReadAt,
		CreatedAt:  n.CreatedAt,
	}
}

package notifications

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/pagination"
)

type fakeRepo struct {
	rows map[uuid.UUID]*models.Notification
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]*models.Notification{}}
}

func (f *fakeRepo) Create(_ context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	f.rows[n.ID] = n
	return nil
}

func (f *fakeRepo) List(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int, cursor *pagination.Cursor) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.rows {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		if cursor != nil && !n.CreatedAt.Before(cursor.CreatedAt) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range f.rows {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, userID, notificationID uuid.UUID, at time.Time) (int64, error) {
	n, ok := f.rows[notificationID]
	if !ok || n.UserID != userID || n.ReadAt != nil {
		return 0, nil
	}
	n.ReadAt = &at
	return 1, nil
}

func (f *fakeRepo) MarkAllRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	var affected int64
	for _, n := range f.rows {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &at
			affected++
		}
	}
	return affected, nil
}

func seedNotification(repo *fakeRepo, userID uuid.UUID, createdAt time.Time, read bool) *models.Notification {
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeBillCreated,
		Title:     "New bill issued",
		Message:   "A rent bill is due.",
		CreatedAt: createdAt,
	}
	if read {
		at := createdAt.Add(time.Minute)
		n.ReadAt = &at
	}
	repo.rows[n.ID] = n
	return n
}

func TestListPaginatesWithCursor(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	base := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedNotification(repo, userID, base.Add(time.Duration(i)*time.Hour), false)
	}

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	first, err := svc.List(context.Background(), userID, false, pagination.Params{Limit: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(first.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(first.Items))
	}
	if first.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}
	if !first.Items[0].CreatedAt.After(first.Items[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	second, err := svc.List(context.Background(), userID, false, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 items on the last page, got %d", len(second.Items))
	}
	if second.NextCursor != "" {
		t.Fatal("expected no cursor on the last page")
	}
}

func TestListUnreadOnlyFilters(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	base := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	seedNotification(repo, userID, base, true)
	seedNotification(repo, userID, base.Add(time.Hour), false)

	svc, _ := NewService(repo)
	result, err := svc.List(context.Background(), userID, true, pagination.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 unread item, got %d", len(result.Items))
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	svc, _ := NewService(newFakeRepo())
	_, err := svc.List(context.Background(), uuid.New(), false, pagination.Params{Cursor: "not-a-cursor"})
	if err == nil {
		t.Fatal("expected error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnreadCount(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	base := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	seedNotification(repo, userID, base, false)
	seedNotification(repo, userID, base.Add(time.Hour), false)
	seedNotification(repo, userID, base.Add(2*time.Hour), true)
	seedNotification(repo, uuid.New(), base, false)

	svc, _ := NewService(repo)
	result, err := svc.UnreadCount(context.Background(), userID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if result.Unread != 2 {
		t.Fatalf("expected 2 unread, got %d", result.Unread)
	}
}

func TestMarkReadOwnRowOnly(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	n := seedNotification(repo, userID, time.Now(), false)

	svc, _ := NewService(repo)
	if err := svc.MarkRead(context.Background(), uuid.New(), n.ID); err == nil {
		t.Fatal("expected stranger to get not found")
	}
	if err := svc.MarkRead(context.Background(), userID, n.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if repo.rows[n.ID].ReadAt == nil {
		t.Fatal("expected read_at stamped")
	}

	// Already read rows report not found rather than re-stamping.
	if err := svc.MarkRead(context.Background(), userID, n.ID); err == nil {
		t.Fatal("expected not found on second mark")
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	base := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	seedNotification(repo, userID, base, false)
	seedNotification(repo, userID, base.Add(time.Hour), false)
	seedNotification(repo, userID, base.Add(2*time.Hour), true)

	svc, _ := NewService(repo)
	affected, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 rows stamped, got %d", affected)
	}

	count, _ := svc.UnreadCount(context.Background(), userID)
	if count.Unread != 0 {
		t.Fatalf("expected 0 unread, got %d", count.Unread)
	}
}

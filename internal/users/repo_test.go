package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT,
  role TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_verification',
  email_verified_at DATETIME,
  two_factor_enabled NUMERIC NOT NULL DEFAULT 0,
  two_factor_code TEXT,
  two_factor_expires_at DATETIME,
  failed_login_attempts INTEGER NOT NULL DEFAULT 0,
  locked_until DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func insertUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("user_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         enums.UserRoleTenant,
		Status:       enums.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := insertUser(t, db)
	lockedUntil := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, 5, lockedUntil))
	}
	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil, "four failures must not open the lockout window")

	require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, 5, lockedUntil))
	stored, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LockedUntil)
	assert.True(t, stored.IsLocked(time.Now().UTC()), "fifth failure must lock the account")
}

func TestRecordFailedLoginKeepsCountingPastThreshold(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := insertUser(t, db)
	firstWindow := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	secondWindow := firstWindow.Add(10 * time.Minute)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, 5, firstWindow))
	}
	require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, 5, secondWindow))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LockedUntil)
	assert.True(t, stored.IsLocked(firstWindow.Add(-time.Minute)),
		"the sixth failure extends the lockout window")
}

func TestUpdateLastLoginResetsLockout(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := insertUser(t, db)
	lockedUntil := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, 5, lockedUntil))
	}

	loginAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, loginAt))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
	require.NotNil(t, stored.LastLoginAt)
	assert.False(t, stored.IsLocked(time.Now().UTC()))
}

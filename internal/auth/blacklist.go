package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
)

// BlacklistRepository persists revoked token identifiers.
type BlacklistRepository struct {
	db *gorm.DB
}

// NewBlacklistRepository builds a blacklist repo bound to the provided GORM DB.
func NewBlacklistRepository(db *gorm.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Revoke records the jti so the token can no longer be used. Re-revoking an
// already blacklisted jti is a no-op.
func (r *BlacklistRepository) Revoke(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) error {
	row := models.BlacklistedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "jti"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

// IsBlacklisted reports whether the jti has been revoked.
func (r *BlacklistRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	var row models.BlacklistedToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteExpired purges rows whose tokens have already expired. Returns the
// number of rows removed.
func (r *BlacklistRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.BlacklistedToken{})
	return res.RowsAffected, res.Error
}

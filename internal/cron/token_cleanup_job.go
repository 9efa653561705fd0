package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rentfolio/rentfolio-backend/pkg/logger"
)

type blacklistCleanupRepo interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenCleanupJobParams configure the blacklist cleanup job.
type TokenCleanupJobParams struct {
	Logger     *logger.Logger
	Repository blacklistCleanupRepo
}

// NewTokenCleanupJob prunes blacklisted tokens whose expiry has passed.
// Expired tokens fail signature validation anyway, so their rows are dead
// weight.
func NewTokenCleanupJob(params TokenCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("blacklist repository required")
	}
	return &tokenCleanupJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type tokenCleanupJob struct {
	logg *logger.Logger
	repo blacklistCleanupRepo
	now  func() time.Time
}

func (j *tokenCleanupJob) Name() string { return "token-blacklist-cleanup" }

func (j *tokenCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.repo.DeleteExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("token blacklist cleanup: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_deleted", deleted)
	j.logg.Info(logCtx, "token blacklist cleanup complete")
	return nil
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

const notificationRetentionDays = 30

type notificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      notificationPruner
	retention int
	now       func() time.Time
}

// NewNotificationCleanupJob deletes read notifications older than retentionDays (default 30).
func NewNotificationCleanupJob(logg *logger.Logger, repo notificationPruner, retentionDays int) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if retentionDays <= 0 {
		retentionDays = notificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:      logg,
		repo:      repo,
		retention: retentionDays,
		now:       time.Now,
	}, nil
}

func (j *notificationCleanupJob) Name() string { return "notification_cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "notification cleanup complete")
	return nil
}

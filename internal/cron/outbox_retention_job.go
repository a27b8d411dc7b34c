package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	outboxDeadAttempts  = 10
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	Retention  int
	// DeadAttempts should match the publisher's max attempts so dead-lettered rows are pruned too.
	DeadAttempts int
}

type outboxPruner interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time, deadAttempts int) (int64, error)
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxPruner
	retention    int
	deadAttempts int
	now          func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	dead := params.DeadAttempts
	if dead <= 0 {
		dead = outboxDeadAttempts
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		retention:    retention,
		deadAttempts: dead,
		now:          time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox_retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.DeletePublishedBefore(tx, cutoff, j.deadAttempts)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"dead_attempts": j.deadAttempts,
		"rows_deleted":  deleted,
	}), "outbox retention cleanup complete")
	return nil
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
)

const overdueBatchSize = 500

type overdueLister interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]borrowing.Listing, error)
}

type onceEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

type OverdueBorrowsJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Borrows   overdueLister
	Outbox    onceEmitter
	BatchSize int
}

type overdueBorrowsJob struct {
	logg    *logger.Logger
	db      txRunner
	borrows overdueLister
	outbox  onceEmitter
	batch   int
	now     func() time.Time
}

// NewOverdueBorrowsJob emits one borrow_overdue event per open borrow past its return date.
func NewOverdueBorrowsJob(params OverdueBorrowsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Borrows == nil {
		return nil, errors.New("borrow repository required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = overdueBatchSize
	}
	return &overdueBorrowsJob{
		logg:    params.Logger,
		db:      params.DB,
		borrows: params.Borrows,
		outbox:  params.Outbox,
		batch:   batch,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *overdueBorrowsJob) Name() string { return "overdue_borrows" }

func (j *overdueBorrowsJob) Run(ctx context.Context) error {
	now := j.now()
	rows, err := j.borrows.ListOverdue(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("list overdue borrows: %w", err)
	}

	var errs error
	emitted := 0
	for _, row := range rows {
		row := row
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			created, err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventBorrowOverdue,
				AggregateType: enums.AggregateBorrow,
				AggregateID:   row.ID,
				OccurredAt:    now,
				Data: payloads.BorrowOverdueEvent{
					BorrowID:    row.ID,
					UserID:      row.UserID,
					BookID:      row.BookID,
					Title:       row.Title,
					ReturnDate:  row.ReturnDate,
					DaysOverdue: DaysOverdue(row.ReturnDate, now),
				},
			})
			if created {
				emitted++
			}
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("borrow %s: %w", row.ID, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"overdue": len(rows),
		"emitted": emitted,
	})
	j.logg.Info(logCtx, "overdue borrow scan complete")
	return errs
}

// DaysOverdue counts started days past the return date, at least one.
func DaysOverdue(returnDate, now time.Time) int {
	late := now.Sub(returnDate)
	days := int(late / (24 * time.Hour))
	if late%(24*time.Hour) > 0 {
		days++
	}
	if days < 1 {
		return 1
	}
	return days
}

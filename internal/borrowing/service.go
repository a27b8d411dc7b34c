package borrowing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
)

const (
	MinDays     = 1
	MaxDays     = 30
	DefaultDays = 1

	AlreadyBorrowedMessage = "already borrowed"
	AlreadyReturnedMessage = "book has already been returned"
	NotFoundMessage        = "borrow record not found"
)

// DailyFee is charged per borrowed day and refunded per unused whole day.
var DailyFee = decimal.RequireFromString("2.00")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerMetrics interface {
	IncBorrow()
	IncReturn(refund decimal.Decimal)
}

// Service runs the time-boxed loan ledger.
type Service interface {
	Borrow(ctx context.Context, userID, bookID uuid.UUID, days *int) (*BorrowDTO, error)
	Return(ctx context.Context, requester Requester, borrowID uuid.UUID) (*ReturnResult, error)
}

// Requester identifies who asks for a return; admins may return any record.
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ServiceParams bundles the borrowing collaborators.
type ServiceParams struct {
	DB      txRunner
	Outbox  outbox.Emitter
	Metrics ledgerMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	db      txRunner
	outbox  outbox.Emitter
	metrics ledgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:      params.DB,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

// ResolveDays applies the default and bounds check for a requested loan length.
func ResolveDays(days *int, fallback int) (int, error) {
	if days == nil {
		return fallback, nil
	}
	if *days < MinDays || *days > MaxDays {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "days must be between %d and %d", MinDays, MaxDays)
	}
	return *days, nil
}

func (s *service) Borrow(ctx context.Context, userID, bookID uuid.UUID, days *int) (*BorrowDTO, error) {
	n, err := ResolveDays(days, DefaultDays)
	if err != nil {
		return nil, err
	}

	var created *models.BorrowRecord
	var title string
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		book, err := books.NewRepository(tx).FindByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NotFound(books.NotFoundMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
		}
		title = book.Title
		created, err = CreateInTx(ctx, tx, s.outbox, NewLoan{
			UserID:    userID,
			Book:      *book,
			Days:      n,
			TotalCost: DailyFee.Mul(decimal.NewFromInt(int64(n))),
			Now:       s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncBorrow()
	}
	dto := FromModel(*created, title)
	return &dto, nil
}

// NewLoan describes a borrow record about to be written.
type NewLoan struct {
	UserID    uuid.UUID
	Book      models.Book
	Days      int
	TotalCost decimal.Decimal
	OrderID   *uuid.UUID
	Now       time.Time
}

// CreateInTx writes a borrow record and its book_borrowed event on tx. It rejects
// a second active borrow of the same book, whether found up front or by the
// partial unique index.
func CreateInTx(ctx context.Context, tx *gorm.DB, emitter outbox.Emitter, loan NewLoan) (*models.BorrowRecord, error) {
	r := NewRepository(tx)
	active, err := r.HasActive(ctx, loan.UserID, loan.Book.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active borrow")
	}
	if active {
		return nil, pkgerrors.Conflict(AlreadyBorrowedMessage)
	}

	rec := &models.BorrowRecord{
		UserID:       loan.UserID,
		BookID:       loan.Book.ID,
		OrderID:      loan.OrderID,
		BorrowDate:   loan.Now,
		ReturnDate:   loan.Now.AddDate(0, 0, loan.Days),
		DaysBorrowed: loan.Days,
		TotalCost:    loan.TotalCost,
	}
	if err := r.Create(ctx, rec); err != nil {
		if db.IsUniqueViolation(err, ActiveBorrowConstraint, "user_id", "book_id") {
			return nil, pkgerrors.Conflict(AlreadyBorrowedMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create borrow record")
	}

	err = emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBookBorrowed,
		AggregateType: enums.AggregateBorrow,
		AggregateID:   rec.ID,
		Actor:         &outbox.ActorRef{UserID: loan.UserID, Role: string(enums.RoleUser)},
		OccurredAt:    loan.Now,
		Data: payloads.BookBorrowedEvent{
			BorrowID:   rec.ID,
			UserID:     rec.UserID,
			BookID:     rec.BookID,
			Title:      loan.Book.Title,
			Days:       rec.DaysBorrowed,
			TotalCost:  rec.TotalCost,
			ReturnDate: rec.ReturnDate,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit book_borrowed")
	}
	return rec, nil
}

// RefundAmount is the daily fee for each unused day, never more than what is
// left of the loan's cost. Flat-fee loans from direct checkout pay 2.00 for the
// whole period, so their refund is bounded by that payment.
func RefundAmount(days int, paid decimal.Decimal) decimal.Decimal {
	if days <= 0 || !paid.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(DailyFee.Mul(decimal.NewFromInt(int64(days))), paid)
}

// RefundDays is the number of whole unused days left on a loan at now.
func RefundDays(returnDate, now time.Time) int {
	if !now.Before(returnDate) {
		return 0
	}
	return int(returnDate.Sub(now) / (24 * time.Hour))
}

func (s *service) Return(ctx context.Context, requester Requester, borrowID uuid.UUID) (*ReturnResult, error) {
	now := s.now()
	result := &ReturnResult{RefundAmount: decimal.Zero}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := NewRepository(tx)
		rec, err := r.FindByID(ctx, borrowID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NotFound(NotFoundMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load borrow record")
		}
		if rec.UserID != requester.UserID && !requester.IsAdmin {
			return pkgerrors.NotFound(NotFoundMessage)
		}
		if rec.Returned {
			return pkgerrors.Conflict(AlreadyReturnedMessage)
		}

		book, err := books.NewRepository(tx).FindByID(ctx, rec.BookID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
		}
		title := ""
		if book != nil {
			title = book.Title
		}

		days := RefundDays(rec.ReturnDate, now)
		totalCost := rec.TotalCost
		amount := RefundAmount(days, totalCost)
		if amount.IsPositive() {
			refund := &models.Refund{
				BorrowID: rec.ID,
				Amount:   amount,
				Reason:   fmt.Sprintf("Early return refund for %d days", days),
			}
			if err := r.CreateRefund(ctx, refund); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create refund")
			}
			totalCost = totalCost.Sub(amount)
			result.RefundAmount = amount
			result.RefundDays = days

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRefundIssued,
				AggregateType: enums.AggregateBorrow,
				AggregateID:   rec.ID,
				Actor:         actorFor(requester),
				OccurredAt:    now,
				Data: payloads.RefundIssuedEvent{
					RefundID: refund.ID,
					BorrowID: rec.ID,
					UserID:   rec.UserID,
					Amount:   amount,
					Days:     days,
					Reason:   refund.Reason,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit refund_issued")
			}
		}

		changed, err := r.MarkReturned(ctx, rec.ID, totalCost, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark returned")
		}
		if !changed {
			return pkgerrors.Conflict(AlreadyReturnedMessage)
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookReturned,
			AggregateType: enums.AggregateBorrow,
			AggregateID:   rec.ID,
			Actor:         actorFor(requester),
			OccurredAt:    now,
			Data: payloads.BookReturnedEvent{
				BorrowID:     rec.ID,
				UserID:       rec.UserID,
				BookID:       rec.BookID,
				Title:        title,
				RefundAmount: result.RefundAmount,
				ReturnedAt:   now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit book_returned")
		}

		rec.Returned = true
		rec.ActualReturnDate = &now
		rec.TotalCost = totalCost
		result.Borrow = FromModel(*rec, title)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncReturn(result.RefundAmount)
	}
	if result.RefundDays > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"borrow_id":     borrowID.String(),
			"refund_amount": result.RefundAmount.StringFixed(2),
		})
		s.logg.Info(logCtx, "early return refund issued")
	}
	return result, nil
}

func actorFor(r Requester) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: r.UserID, Role: string(enums.RoleFor(r.IsAdmin))}
}

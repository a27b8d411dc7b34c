package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

const (
	// LoanDays is the fixed due period of a stock loan.
	LoanDays = 14

	UnavailableMessage     = "book not available"
	AlreadyBorrowedMessage = "already borrowed"
	NoActiveBorrowMessage  = "no active borrow record found"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the stock-counted borrow/buy path, where each copy on the shelf is finite.
type Service interface {
	Available(ctx context.Context) ([]books.BookDTO, error)
	Borrow(ctx context.Context, userID, bookID uuid.UUID) (*TransactionDTO, error)
	Return(ctx context.Context, userID, bookID uuid.UUID) (*TransactionDTO, error)
	Buy(ctx context.Context, userID, bookID uuid.UUID) (*TransactionDTO, error)
	History(ctx context.Context, userID uuid.UUID) ([]TransactionDTO, error)
}

type TransactionDTO struct {
	ID         uuid.UUID                    `json:"id"`
	BookID     uuid.UUID                    `json:"book_id"`
	Type       enums.StockTransactionType   `json:"transaction_type"`
	Status     enums.StockTransactionStatus `json:"status"`
	Price      *decimal.Decimal             `json:"price,omitempty"`
	DueDate    *time.Time                   `json:"due_date,omitempty"`
	ReturnDate *time.Time                   `json:"return_date,omitempty"`
	CreatedAt  time.Time                    `json:"created_at"`
}

func fromModel(t models.StockTransaction) TransactionDTO {
	return TransactionDTO{
		ID:         t.ID,
		BookID:     t.BookID,
		Type:       t.Type,
		Status:     t.Status,
		Price:      t.Price,
		DueDate:    t.DueDate,
		ReturnDate: t.ReturnDate,
		CreatedAt:  t.CreatedAt,
	}
}

type service struct {
	db  txRunner
	now func() time.Time
}

func NewService(db txRunner, now func() time.Time) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{db: db, now: now}, nil
}

func (s *service) Available(ctx context.Context) ([]books.BookDTO, error) {
	var out []books.BookDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := NewRepository(tx).ListAvailable(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list available books")
		}
		out = books.FromModels(rows)
		return nil
	})
	return out, err
}

func (s *service) Borrow(ctx context.Context, userID, bookID uuid.UUID) (*TransactionDTO, error) {
	var dto TransactionDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := NewRepository(tx)
		if _, err := r.FindActiveBorrow(ctx, userID, bookID); err == nil {
			return pkgerrors.Conflict(AlreadyBorrowedMessage)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active stock borrow")
		}
		if _, err := takeCopy(ctx, tx, bookID); err != nil {
			return err
		}

		now := s.now()
		due := now.AddDate(0, 0, LoanDays)
		txn := &models.StockTransaction{
			UserID:  userID,
			BookID:  bookID,
			Type:    enums.StockTransactionBorrow,
			Status:  enums.StockStatusActive,
			DueDate: &due,
		}
		if err := r.Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record stock borrow")
		}
		dto = fromModel(*txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Return(ctx context.Context, userID, bookID uuid.UUID) (*TransactionDTO, error) {
	var dto TransactionDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := NewRepository(tx)
		txn, err := r.FindActiveBorrow(ctx, userID, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NotFound(NoActiveBorrowMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock borrow")
		}

		now := s.now()
		ok, err := r.Complete(ctx, txn.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete stock borrow")
		}
		if !ok {
			return pkgerrors.NotFound(NoActiveBorrowMessage)
		}
		if err := books.NewRepository(tx).IncrementStock(ctx, bookID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock book")
		}

		txn.Status = enums.StockStatusCompleted
		txn.ReturnDate = &now
		dto = fromModel(*txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Buy(ctx context.Context, userID, bookID uuid.UUID) (*TransactionDTO, error) {
	var dto TransactionDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		book, err := takeCopy(ctx, tx, bookID)
		if err != nil {
			return err
		}
		price := book.EffectivePrice()
		txn := &models.StockTransaction{
			UserID: userID,
			BookID: bookID,
			Type:   enums.StockTransactionBuy,
			Status: enums.StockStatusCompleted,
			Price:  &price,
		}
		if err := NewRepository(tx).Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record stock purchase")
		}
		dto = fromModel(*txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]TransactionDTO, error) {
	out := []TransactionDTO{}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := NewRepository(tx).ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock transactions")
		}
		for _, row := range rows {
			out = append(out, fromModel(row))
		}
		return nil
	})
	return out, err
}

// takeCopy decrements the shelf count atomically. A missing book or an empty
// shelf both surface as not available.
func takeCopy(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) (*models.Book, error) {
	repo := books.NewRepository(tx)
	ok, err := repo.DecrementStock(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, UnavailableMessage)
	}
	book, err := repo.FindByID(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}
	return book, nil
}

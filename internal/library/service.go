package library

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/orders"
	"github.com/angelmondragon/elibrary-backend/internal/purchases"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Shelf is everything a reader currently or previously had access to.
type Shelf struct {
	Borrowed  []borrowing.BorrowDTO   `json:"borrowed"`
	Purchased []purchases.PurchaseDTO `json:"purchased"`
}

// Service serves the signed-in reader's own records.
type Service interface {
	MyBooks(ctx context.Context, userID uuid.UUID) (*Shelf, error)
	MyOrders(ctx context.Context, userID uuid.UUID) ([]orders.OrderDTO, error)
}

type service struct {
	db     txRunner
	orders orders.Repository
	now    func() time.Time
}

func NewService(db txRunner, ordersRepo orders.Repository, now func() time.Time) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{db: db, orders: ordersRepo, now: now}, nil
}

// MyBooks reports days_borrowed as days elapsed so far, not the booked length.
func (s *service) MyBooks(ctx context.Context, userID uuid.UUID) (*Shelf, error) {
	shelf := &Shelf{}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		borrows, err := borrowing.NewRepository(tx).ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list borrows")
		}
		owned, err := purchases.NewRepository(tx).ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
		}

		now := s.now()
		shelf.Borrowed = make([]borrowing.BorrowDTO, 0, len(borrows))
		for _, row := range borrows {
			dto := borrowing.FromListing(row, now)
			dto.DaysBorrowed = borrowing.ElapsedDays(row.BorrowRecord, now)
			shelf.Borrowed = append(shelf.Borrowed, dto)
		}
		shelf.Purchased = purchases.FromListings(owned)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shelf, nil
}

func (s *service) MyOrders(ctx context.Context, userID uuid.UUID) ([]orders.OrderDTO, error) {
	list, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders.FromModels(list), nil
}

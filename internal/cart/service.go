package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

const ItemNotFoundMessage = "cart item not found"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a reader's cart.
type Service interface {
	Add(ctx context.Context, userID, bookID uuid.UUID) (*Summary, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Summary, error)
	View(ctx context.Context, userID uuid.UUID) (*Summary, error)
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

func (s *service) Add(ctx context.Context, userID, bookID uuid.UUID) (*Summary, error) {
	var out Summary
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := books.NewRepository(tx).FindByID(ctx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NotFound(books.NotFoundMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
		}
		r := NewRepository(tx)
		if err := r.Upsert(ctx, userID, bookID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		return summarize(ctx, r, userID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := NewRepository(tx).Delete(ctx, userID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}
		if !ok {
			return pkgerrors.NotFound(ItemNotFoundMessage)
		}
		return nil
	})
}

// UpdateQuantity clamps quantity to at least 1.
func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Summary, error) {
	if quantity < 1 {
		quantity = 1
	}
	var out Summary
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := NewRepository(tx)
		ok, err := r.SetQuantity(ctx, userID, itemID, quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		if !ok {
			return pkgerrors.NotFound(ItemNotFoundMessage)
		}
		return summarize(ctx, r, userID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	var out Summary
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return summarize(ctx, NewRepository(tx), userID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func summarize(ctx context.Context, r *Repository, userID uuid.UUID, out *Summary) error {
	lines, err := r.Lines(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	*out = Summarize(lines)
	return nil
}

package purchases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
)

const AlreadyPurchasedMessage = "already purchased"

const channelDirect = "direct"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type purchaseMetrics interface {
	IncPurchase(channel string, n int)
}

// Service grants permanent access to a book at its current price.
type Service interface {
	Buy(ctx context.Context, userID, bookID uuid.UUID) (*PurchaseDTO, error)
}

type ServiceParams struct {
	DB      txRunner
	Outbox  outbox.Emitter
	Metrics purchaseMetrics
	Now     func() time.Time
}

type service struct {
	db      txRunner
	outbox  outbox.Emitter
	metrics purchaseMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{db: params.DB, outbox: params.Outbox, metrics: params.Metrics, now: params.Now}, nil
}

func (s *service) Buy(ctx context.Context, userID, bookID uuid.UUID) (*PurchaseDTO, error) {
	var dto PurchaseDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		book, err := books.NewRepository(tx).FindByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NotFound(books.NotFoundMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
		}
		rec, err := CreateInTx(ctx, tx, s.outbox, userID, *book, nil, s.now())
		if err != nil {
			return err
		}
		dto = FromModel(*rec, book.Title)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncPurchase(channelDirect, 1)
	}
	return &dto, nil
}

// CreateInTx snapshots the book's effective price into a purchase record and
// emits book_purchased. An existing purchase is a conflict.
func CreateInTx(ctx context.Context, tx *gorm.DB, emitter outbox.Emitter, userID uuid.UUID, book models.Book, orderID *uuid.UUID, now time.Time) (*models.PurchaseRecord, error) {
	r := NewRepository(tx)
	owned, err := r.Exists(ctx, userID, book.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check purchase")
	}
	if owned {
		return nil, pkgerrors.Conflict(AlreadyPurchasedMessage)
	}

	rec := &models.PurchaseRecord{
		UserID:       userID,
		BookID:       book.ID,
		OrderID:      orderID,
		PurchaseDate: now,
		Price:        book.EffectivePrice(),
	}
	if err := r.Create(ctx, rec); err != nil {
		if db.IsUniqueViolation(err, UserBookConstraint, "user_id", "book_id") {
			return nil, pkgerrors.Conflict(AlreadyPurchasedMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create purchase record")
	}

	err = emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBookPurchased,
		AggregateType: enums.AggregatePurchase,
		AggregateID:   rec.ID,
		Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.RoleUser)},
		OccurredAt:    now,
		Data: payloads.BookPurchasedEvent{
			PurchaseID: rec.ID,
			OrderID:    orderID,
			UserID:     userID,
			BookID:     book.ID,
			Title:      book.Title,
			Price:      rec.Price,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit book_purchased")
	}
	return rec, nil
}

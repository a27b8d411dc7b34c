package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/cart"
	"github.com/angelmondragon/elibrary-backend/internal/orders"
	"github.com/angelmondragon/elibrary-backend/internal/purchases"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
)

const (
	EmptyCartMessage = "your cart is empty"

	// DirectBorrowDays is the loan length when a direct borrow confirms without days.
	DirectBorrowDays = 14

	cartSuccessMessage   = "Payment successful! Your books have been added to your library."
	directBuyMessage     = "Payment successful! Your book has been added to your library."
	directBorrowTemplate = "Payment successful! Book borrowed. Please return it within %d days."

	channelCart   = "cart"
	channelDirect = "direct"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type checkoutMetrics interface {
	IncOrder(orderType, method string)
	IncPurchase(channel string, n int)
	IncBorrow()
}

// Service executes cart and single-book checkouts.
type Service interface {
	Summary(ctx context.Context, userID uuid.UUID) (*cart.Summary, error)
	ProcessPayment(ctx context.Context, userID uuid.UUID, payment Payment) (*Receipt, error)
	Start(ctx context.Context, userID, bookID uuid.UUID, action string) (*PendingCheckout, error)
	Pending(ctx context.Context, userID uuid.UUID) (*PendingCheckout, error)
	Confirm(ctx context.Context, userID uuid.UUID, payment Payment, days *int) (*Receipt, error)
}

// Receipt is returned after a successful payment.
type Receipt struct {
	Order   orders.OrderDTO `json:"order"`
	Message string          `json:"message"`
}

// ServiceParams bundles the checkout collaborators.
type ServiceParams struct {
	DB         txRunner
	Orders     orders.Repository
	Outbox     outbox.Emitter
	Pending    pendingStore
	PendingTTL time.Duration
	Metrics    checkoutMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	db         txRunner
	orders     orders.Repository
	outbox     outbox.Emitter
	pending    pendingStore
	pendingTTL time.Duration
	metrics    checkoutMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending checkout store required")
	}
	if params.PendingTTL <= 0 {
		params.PendingTTL = 15 * time.Minute
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:         params.DB,
		orders:     params.Orders,
		outbox:     params.Outbox,
		pending:    params.Pending,
		pendingTTL: params.PendingTTL,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        params.Now,
	}, nil
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*cart.Summary, error) {
	var out cart.Summary
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		lines, err := cart.NewRepository(tx).Lines(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		out = cart.Summarize(lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessPayment turns the whole cart into one purchase order. Books the reader
// already owns keep their order line but do not get a second purchase record.
func (s *service) ProcessPayment(ctx context.Context, userID uuid.UUID, payment Payment) (*Receipt, error) {
	method, details, err := payment.Resolve()
	if err != nil {
		return nil, err
	}

	var (
		order   *models.Order
		granted int
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := cart.NewRepository(tx)
		lines, err := cartRepo.Lines(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.Validation(EmptyCartMessage)
		}
		summary := cart.Summarize(lines)
		now := s.now()

		order = &models.Order{
			UserID:         userID,
			TotalAmount:    summary.Total,
			PaymentMethod:  method,
			PaymentDetails: details,
			OrderType:      enums.OrderTypePurchase,
			OrderDate:      now,
		}
		bookIDs := make([]uuid.UUID, 0, len(lines))
		titles := make([]string, 0, len(lines))
		for _, line := range summary.Items {
			order.Items = append(order.Items, models.OrderItem{
				BookID:   line.BookID,
				Quantity: line.Quantity,
				Price:    line.Price,
			})
			bookIDs = append(bookIDs, line.BookID)
			titles = append(titles, line.Title)
		}
		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		purchaseRepo := purchases.NewRepository(tx)
		for _, line := range summary.Items {
			wrote, err := purchaseRepo.InsertIgnore(ctx, &models.PurchaseRecord{
				UserID:       userID,
				BookID:       line.BookID,
				OrderID:      &order.ID,
				PurchaseDate: now,
				Price:        line.Price,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant purchase")
			}
			if wrote {
				granted++
			}
		}

		if err := cartRepo.Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return s.emitOrderPlaced(ctx, tx, order, bookIDs, titles)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOrder(string(enums.OrderTypePurchase), string(method))
		s.metrics.IncPurchase(channelCart, granted)
	}
	return &Receipt{Order: orders.FromModel(*order), Message: cartSuccessMessage}, nil
}

// Start parks a single-book buy or borrow until the reader pays.
func (s *service) Start(ctx context.Context, userID, bookID uuid.UUID, action string) (*PendingCheckout, error) {
	kind, err := enums.ParseOrderType(action)
	if err != nil {
		return nil, pkgerrors.Validation("invalid action")
	}

	var pending PendingCheckout
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		book, err := loadBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if kind == enums.OrderTypeBorrow {
			active, err := borrowing.NewRepository(tx).HasActive(ctx, userID, bookID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active borrow")
			}
			if active {
				return pkgerrors.Conflict(borrowing.AlreadyBorrowedMessage)
			}
		}
		pending = PendingCheckout{
			Action:    kind,
			BookID:    book.ID,
			Title:     book.Title,
			Price:     book.EffectivePrice(),
			CreatedAt: s.now(),
		}
		pending.Total = pending.Price
		if kind == enums.OrderTypeBorrow {
			pending.Total = borrowing.DailyFee
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.savePending(ctx, userID, pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (s *service) Pending(ctx context.Context, userID uuid.UUID) (*PendingCheckout, error) {
	return s.loadPending(ctx, userID)
}

// Confirm pays for the pending selection. The token is only cleared once the
// order has committed, so a failed payment can be retried.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID, payment Payment, days *int) (*Receipt, error) {
	method, details, err := payment.Resolve()
	if err != nil {
		return nil, err
	}
	pending, err := s.loadPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	loanDays := 0
	if pending.Action == enums.OrderTypeBorrow {
		if loanDays, err = borrowing.ResolveDays(days, DirectBorrowDays); err != nil {
			return nil, err
		}
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		book, err := loadBook(ctx, tx, pending.BookID)
		if err != nil {
			return err
		}
		now := s.now()
		order = &models.Order{
			UserID:         userID,
			TotalAmount:    pending.Total,
			PaymentMethod:  method,
			PaymentDetails: details,
			OrderType:      pending.Action,
			OrderDate:      now,
		}
		if pending.Action == enums.OrderTypePurchase {
			order.Items = []models.OrderItem{{BookID: book.ID, Quantity: 1, Price: pending.Price}}
		}
		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		switch pending.Action {
		case enums.OrderTypePurchase:
			snapshot := *book
			snapshot.Price = &pending.Price
			if _, err := purchases.CreateInTx(ctx, tx, s.outbox, userID, snapshot, &order.ID, now); err != nil {
				return err
			}
		case enums.OrderTypeBorrow:
			_, err := borrowing.CreateInTx(ctx, tx, s.outbox, borrowing.NewLoan{
				UserID:    userID,
				Book:      *book,
				Days:      loanDays,
				TotalCost: borrowing.DailyFee,
				OrderID:   &order.ID,
				Now:       now,
			})
			if err != nil {
				return err
			}
		}
		return s.emitOrderPlaced(ctx, tx, order, []uuid.UUID{book.ID}, []string{book.Title})
	})
	if err != nil {
		return nil, err
	}
	s.clearPending(ctx, userID)

	message := directBuyMessage
	if s.metrics != nil {
		s.metrics.IncOrder(string(pending.Action), string(method))
	}
	if pending.Action == enums.OrderTypeBorrow {
		message = fmt.Sprintf(directBorrowTemplate, loanDays)
		if s.metrics != nil {
			s.metrics.IncBorrow()
		}
	} else if s.metrics != nil {
		s.metrics.IncPurchase(channelDirect, 1)
	}
	return &Receipt{Order: orders.FromModel(*order), Message: message}, nil
}

func (s *service) emitOrderPlaced(ctx context.Context, tx *gorm.DB, order *models.Order, bookIDs []uuid.UUID, titles []string) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.RoleUser)},
		OccurredAt:    order.OrderDate,
		Data: payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			OrderType:     order.OrderType,
			PaymentMethod: order.PaymentMethod,
			Total:         order.TotalAmount,
			BookIDs:       bookIDs,
			Titles:        titles,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order_placed")
	}
	return nil
}

func loadBook(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Book, error) {
	book, err := books.NewRepository(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(books.NotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}
	return book, nil
}

package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/internal/orders"
	"github.com/angelmondragon/elibrary-backend/internal/purchases"
	"github.com/angelmondragon/elibrary-backend/internal/users"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
)

const (
	dashboardRecentUsers = 5
	dashboardRecentLogs  = 10
	activeWindow         = 24 * time.Hour
)

// DeadLetterLimit is the default page size of the dead-letter listing.
const DeadLetterLimit = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sessionRevoker ends every login session of a user.
type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

type deadLetterReader interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
}

// Service is the admin console. Every mutation writes exactly one audit entry
// in the same transaction.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)

	ListBooks(ctx context.Context) ([]books.BookDTO, error)
	AddBook(ctx context.Context, adminID uuid.UUID, in BookInput) (*books.BookDTO, error)
	EditBook(ctx context.Context, adminID, bookID uuid.UUID, in BookInput) (*books.BookDTO, error)
	DeleteBook(ctx context.Context, adminID, bookID uuid.UUID) error

	ListUsers(ctx context.Context) ([]users.UserDTO, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	AddUser(ctx context.Context, adminID uuid.UUID, in UserInput) (*users.UserDTO, error)
	EditUser(ctx context.Context, adminID, userID uuid.UUID, in UserUpdate) (*users.UserDTO, error)
	MakeAdmin(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error)
	ToggleUserStatus(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error)
	DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error

	ListCategories(ctx context.Context) ([]categories.CategoryDTO, error)
	AddCategory(ctx context.Context, adminID uuid.UUID, in CategoryInput) (*categories.CategoryDTO, error)
	DeleteCategory(ctx context.Context, adminID, categoryID uuid.UUID) error

	BorrowedBooks(ctx context.Context) ([]borrowing.BorrowDTO, error)
	PurchasedBooks(ctx context.Context) ([]purchases.PurchaseDTO, error)
	Transactions(ctx context.Context) ([]orders.OrderDTO, error)
	DeadLetters(ctx context.Context, filter outbox.DLQFilter) ([]DeadLetterDTO, error)
}

// ServiceParams bundles the admin console collaborators.
type ServiceParams struct {
	DB             txRunner
	Orders         orders.Repository
	DeadLetters    deadLetterReader
	Sessions       sessionRevoker
	PasswordConfig config.PasswordConfig
	Now            func() time.Time
}

type service struct {
	db          txRunner
	orders      orders.Repository
	deadLetters deadLetterReader
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DeadLetters == nil {
		return nil, fmt.Errorf("dead letter reader required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:          params.DB,
		orders:      params.Orders,
		deadLetters: params.DeadLetters,
		sessions:    params.Sessions,
		passwordCfg: params.PasswordConfig,
		now:         params.Now,
	}, nil
}

func audit(ctx context.Context, tx *gorm.DB, adminID uuid.UUID, action enums.AdminAction, target uuid.UUID, details string) error {
	entry := &models.AdminLog{AdminID: adminID, ActionType: action, TargetID: &target, Details: details}
	if err := NewLogRepository(tx).Append(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write admin log")
	}
	return nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	out := &Dashboard{}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		userRepo := users.NewRepository(tx)
		if out.TotalBooks, err = books.NewRepository(tx).CountBySource(ctx, enums.BookSourceAdmin); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count books")
		}
		if out.TotalUsers, err = userRepo.CountAll(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
		}
		if out.ActiveUsers, err = userRepo.CountActiveSince(ctx, s.now().Add(-activeWindow)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count active users")
		}
		recent, err := userRepo.Recent(ctx, dashboardRecentUsers)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recent users")
		}
		out.RecentUsers = users.FromModels(recent)
		logs, err := NewLogRepository(tx).Recent(ctx, dashboardRecentLogs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recent admin logs")
		}
		out.RecentLogs = logsFromRows(logs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) BorrowedBooks(ctx context.Context) ([]borrowing.BorrowDTO, error) {
	var out []borrowing.BorrowDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := borrowing.NewRepository(tx).ListAll(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list borrows")
		}
		out = borrowing.FromListings(rows, s.now())
		return nil
	})
	return out, err
}

func (s *service) PurchasedBooks(ctx context.Context) ([]purchases.PurchaseDTO, error) {
	var out []purchases.PurchaseDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := purchases.NewRepository(tx).ListAll(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
		}
		out = purchases.FromListings(rows)
		return nil
	})
	return out, err
}

func (s *service) Transactions(ctx context.Context) ([]orders.OrderDTO, error) {
	rows, err := s.orders.ListTransactions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return orders.FromTransactions(rows), nil
}

// DeadLetters lists the newest dead-lettered events; Limit <= 0 uses DeadLetterLimit.
func (s *service) DeadLetters(ctx context.Context, filter outbox.DLQFilter) ([]DeadLetterDTO, error) {
	if filter.Limit <= 0 {
		filter.Limit = DeadLetterLimit
	}
	if filter.Reason != "" && !filter.Reason.IsValid() {
		return nil, pkgerrors.Validation("unknown dead letter reason")
	}
	rows, err := s.deadLetters.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list dead letters")
	}
	return deadLettersFromModels(rows), nil
}

var _ deadLetterReader = (*outbox.DLQRepository)(nil)

package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

// Repository persists stock transactions.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, txn *models.StockTransaction) error {
	return r.DB(ctx).Create(txn).Error
}

// FindActiveBorrow returns the user's open stock loan of book.
func (r *Repository) FindActiveBorrow(ctx context.Context, userID, bookID uuid.UUID) (*models.StockTransaction, error) {
	var txn models.StockTransaction
	err := r.DB(ctx).
		Where("user_id = ? AND book_id = ? AND transaction_type = ? AND status = ?",
			userID, bookID, enums.StockTransactionBorrow, enums.StockStatusActive).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Complete closes an active loan. It reports whether the row was still active.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.StockTransaction{}).
		Where("id = ? AND status = ?", id, enums.StockStatusActive).
		Updates(map[string]any{"status": enums.StockStatusCompleted, "return_date": at})
	return res.RowsAffected == 1, res.Error
}

// ListAvailable returns books with at least one copy on the shelf.
func (r *Repository) ListAvailable(ctx context.Context) ([]models.Book, error) {
	var rows []models.Book
	err := r.DB(ctx).Where("quantity > 0").Order("title ASC").Find(&rows).Error
	return rows, err
}

// ListByUser returns the user's stock transactions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StockTransaction, error) {
	var rows []models.StockTransaction
	err := r.DB(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

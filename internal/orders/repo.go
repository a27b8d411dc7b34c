package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create writes the order and its Items in one statement batch.
func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Find(&out).Error
	return out, err
}

// purchase orders take the title of an item; borrow orders have no items and
// take the title of the loan they paid for.
const transactionTitleSQL = `COALESCE(
	(SELECT b.title FROM order_items oi JOIN books b ON b.id = oi.book_id WHERE oi.order_id = orders.id ORDER BY oi.id LIMIT 1),
	(SELECT b.title FROM borrowed_books bb JOIN books b ON b.id = bb.book_id WHERE bb.order_id = orders.id LIMIT 1),
	''
) AS title`

func (r *repository) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	var rows []TransactionRow
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.*, users.username, " + transactionTitleSQL).
		Joins("JOIN users ON users.id = orders.user_id").
		Order("orders.order_date DESC").
		Scan(&rows).Error
	return rows, err
}

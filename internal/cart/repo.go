package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

const UserBookConstraint = "ux_cart_items_user_book"

// Line is a cart item joined with the book it holds.
type Line struct {
	models.CartItem `gorm:"embedded"`
	Title           string           `gorm:"column:title"`
	Authors         string           `gorm:"column:authors"`
	CoverImage      *string          `gorm:"column:cover_image"`
	Price           *decimal.Decimal `gorm:"column:price"`
}

// EffectivePrice mirrors models.Book.EffectivePrice for the joined price column.
func (l Line) EffectivePrice() decimal.Decimal {
	return models.Book{Price: l.Price}.EffectivePrice()
}

// Repository persists cart items. Every lookup is scoped to the owning user.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Upsert adds one copy of book to the user's cart, creating the row on first add.
func (r *Repository) Upsert(ctx context.Context, userID, bookID uuid.UUID, now time.Time) error {
	item := &models.CartItem{UserID: userID, BookID: bookID, Quantity: 1}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + 1"),
				"updated_at": now,
			}),
		}).
		Create(item).Error
}

func (r *Repository) FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB(ctx).First(&item, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes an owned item. It reports whether a row was removed.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	return res.RowsAffected == 1, res.Error
}

// SetQuantity writes quantity to an owned item. It reports whether the item exists.
func (r *Repository) SetQuantity(ctx context.Context, userID, id uuid.UUID, quantity int) (bool, error) {
	res := r.DB(ctx).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("quantity", quantity)
	return res.RowsAffected == 1, res.Error
}

// Lines returns the user's cart in insertion order.
func (r *Repository) Lines(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	var rows []Line
	err := r.DB(ctx).
		Table("cart_items").
		Select("cart_items.*, books.title, books.authors, books.cover_image, books.price").
		Joins("JOIN books ON books.id = cart_items.book_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.created_at ASC").Order("cart_items.id ASC").
		Scan(&rows).Error
	return rows, err
}

// Clear empties the user's cart.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.DB(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

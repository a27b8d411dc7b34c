package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

const UserBookConstraint = "ux_purchased_books_user_book"

// Listing is a purchase joined with its book and buyer.
type Listing struct {
	models.PurchaseRecord `gorm:"embedded"`
	Title                 string  `gorm:"column:title"`
	Authors               string  `gorm:"column:authors"`
	CoverImage            *string `gorm:"column:cover_image"`
	Username              string  `gorm:"column:username"`
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Exists(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.PurchaseRecord{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) Create(ctx context.Context, rec *models.PurchaseRecord) error {
	return r.DB(ctx).Create(rec).Error
}

// InsertIgnore writes rec unless the user already owns the book. It reports whether a row was written.
func (r *Repository) InsertIgnore(ctx context.Context, rec *models.PurchaseRecord) (bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
			DoNothing: true,
		}).
		Create(rec)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) joined(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Table("purchased_books").
		Select("purchased_books.*, books.title, books.authors, books.cover_image, users.username").
		Joins("JOIN books ON books.id = purchased_books.book_id").
		Joins("JOIN users ON users.id = purchased_books.user_id")
}

// ListByUser returns the user's purchases, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Listing, error) {
	var rows []Listing
	err := r.joined(ctx).
		Where("purchased_books.user_id = ?", userID).
		Order("purchased_books.purchase_date DESC").Order("purchased_books.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListAll returns every purchase, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Listing, error) {
	var rows []Listing
	err := r.joined(ctx).
		Order("purchased_books.purchase_date DESC").Order("purchased_books.id DESC").
		Scan(&rows).Error
	return rows, err
}

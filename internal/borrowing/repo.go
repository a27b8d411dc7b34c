package borrowing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

const ActiveBorrowConstraint = "ux_borrowed_books_active"

// Listing is a borrow record joined with its book title and borrower.
type Listing struct {
	models.BorrowRecord `gorm:"embedded"`
	Title               string  `gorm:"column:title"`
	Authors             string  `gorm:"column:authors"`
	CoverImage          *string `gorm:"column:cover_image"`
	Username            string  `gorm:"column:username"`
}

// Repository persists borrow records and their refunds.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, rec *models.BorrowRecord) error {
	return r.DB(ctx).Create(rec).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// HasActive reports whether user currently holds an unreturned borrow of book.
func (r *Repository) HasActive(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.BorrowRecord{}).
		Where("user_id = ? AND book_id = ? AND returned = ?", userID, bookID, false).
		Count(&count).Error
	return count > 0, err
}

// MarkReturned closes the record only if it is still open. It reports whether a row changed.
func (r *Repository) MarkReturned(ctx context.Context, id uuid.UUID, totalCost decimal.Decimal, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.BorrowRecord{}).
		Where("id = ? AND returned = ?", id, false).
		Updates(map[string]any{
			"returned":           true,
			"actual_return_date": at,
			"total_cost":         totalCost,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.DB(ctx).Create(refund).Error
}

func (r *Repository) joined(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Table("borrowed_books").
		Select("borrowed_books.*, books.title, books.authors, books.cover_image, users.username").
		Joins("JOIN books ON books.id = borrowed_books.book_id").
		Joins("JOIN users ON users.id = borrowed_books.user_id")
}

// ListByUser returns the user's borrows with book data, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Listing, error) {
	var rows []Listing
	err := r.joined(ctx).
		Where("borrowed_books.user_id = ?", userID).
		Order("borrowed_books.borrow_date DESC").Order("borrowed_books.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListAll returns every borrow with book title and username, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Listing, error) {
	var rows []Listing
	err := r.joined(ctx).
		Order("borrowed_books.borrow_date DESC").Order("borrowed_books.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListOverdue returns open borrows whose return date is before now.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]Listing, error) {
	var rows []Listing
	q := r.joined(ctx).
		Where("borrowed_books.returned = ? AND borrowed_books.return_date < ?", false, now).
		Order("borrowed_books.return_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&rows).Error
	return rows, err
}

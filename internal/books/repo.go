package books

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/pagination"
)

const TitleSourceConstraint = "ux_books_title_source"

// BookRow is a book joined with its category name and the username of the admin who added it.
type BookRow struct {
	models.Book     `gorm:"embedded"`
	CategoryName    *string `gorm:"column:category_name"`
	AddedByUsername *string `gorm:"column:added_by_username"`
}

// ListFilter narrows ListBooks. Zero values mean "any".
type ListFilter struct {
	CategoryID *uuid.UUID
	Source     enums.BookSource
}

// Repository persists catalog books.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) joined(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Table("books").
		Select("books.*, book_categories.name AS category_name, users.username AS added_by_username").
		Joins("LEFT JOIN book_categories ON book_categories.id = books.category_id").
		Joins("LEFT JOIN users ON users.id = books.added_by")
}

// List returns one page of books, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]BookRow, error) {
	q := r.joined(ctx)
	if filter.CategoryID != nil {
		q = q.Where("books.category_id = ?", *filter.CategoryID)
	}
	if filter.Source != "" {
		q = q.Where("books.source = ?", filter.Source)
	}
	q, err := pagination.Apply(q, "books", params)
	if err != nil {
		return nil, err
	}
	var rows []BookRow
	err = q.Scan(&rows).Error
	return rows, err
}

// ListBySource returns every book from source, newest first.
func (r *Repository) ListBySource(ctx context.Context, source enums.BookSource) ([]BookRow, error) {
	var rows []BookRow
	err := r.joined(ctx).
		Where("books.source = ?", source).
		Order("books.created_at DESC").Order("books.id DESC").
		Scan(&rows).Error
	return rows, err
}

// Get loads a single joined row.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*BookRow, error) {
	var rows []BookRow
	if err := r.joined(ctx).Where("books.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.DB(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByIDs loads books keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Book, error) {
	out := make(map[uuid.UUID]models.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Book
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, b := range rows {
		out[b.ID] = b
	}
	return out, nil
}

// Related returns up to limit books from the same category, excluding the book itself.
func (r *Repository) Related(ctx context.Context, categoryID, exclude uuid.UUID, limit int) ([]models.Book, error) {
	var rows []models.Book
	err := r.DB(ctx).
		Where("category_id = ? AND id <> ?", categoryID, exclude).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Newest returns the n most recently added books.
func (r *Repository) Newest(ctx context.Context, n int) ([]models.Book, error) {
	var rows []models.Book
	err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Limit(n).Find(&rows).Error
	return rows, err
}

// Search matches q against title, authors and description.
func (r *Repository) Search(ctx context.Context, q string, limit int) ([]models.Book, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(q))) + "%"
	var rows []models.Book
	err := r.DB(ctx).
		Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(authors) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'", pattern, pattern, pattern).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// InsertOrGet inserts book unless a row with the same (title, source) exists, in
// which case the existing row is returned instead. created reports which happened.
func (r *Repository) InsertOrGet(ctx context.Context, book *models.Book) (*models.Book, bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title"}, {Name: "source"}},
			DoNothing: true,
		}).
		Create(book)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return book, true, nil
	}
	var existing models.Book
	if err := r.DB(ctx).Where("title = ? AND source = ?", book.Title, book.Source).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *Repository) Create(ctx context.Context, book *models.Book) error {
	return r.DB(ctx).Create(book).Error
}

// UpdateFields writes the admin-editable columns.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.DB(ctx).Model(&models.Book{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CountBySource(ctx context.Context, source enums.BookSource) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Book{}).Where("source = ?", source).Count(&count).Error
	return count, err
}

// DecrementStock takes one copy off the shelf. It reports false when none were left.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Book{}).
		Where("id = ? AND quantity > 0", id).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) IncrementStock(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + 1")).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

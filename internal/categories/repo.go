package categories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

const NameConstraint = "ux_book_categories_name"

// Repository persists book categories.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// List returns every category ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.BookCategory, error) {
	var rows []models.BookCategory
	err := r.DB(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BookCategory, error) {
	var row models.BookCategory
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindByName(ctx context.Context, name string) (*models.BookCategory, error) {
	var row models.BookCategory
	if err := r.DB(ctx).Where("name = ?", strings.TrimSpace(name)).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, name string) (*models.BookCategory, error) {
	row := &models.BookCategory{Name: strings.TrimSpace(name)}
	if err := r.DB(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// EnsureNames inserts any of names that do not exist yet and returns how many were added.
func (r *Repository) EnsureNames(ctx context.Context, names []string) (int, error) {
	added := 0
	for _, name := range names {
		var count int64
		if err := r.DB(ctx).Model(&models.BookCategory{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return added, err
		}
		if count > 0 {
			continue
		}
		if _, err := r.Create(ctx, name); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Delete removes the category and detaches its books. It reports gorm.ErrRecordNotFound on a miss.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Model(&models.Book{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
		return err
	}
	res := r.DB(ctx).Delete(&models.BookCategory{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

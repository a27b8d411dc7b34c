package admin

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

const CategoryExistsMessage = "category already exists"

func (s *service) ListCategories(ctx context.Context) ([]categories.CategoryDTO, error) {
	var out []categories.CategoryDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := categories.NewRepository(tx).List(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
		}
		out = categories.FromModels(rows)
		return nil
	})
	return out, err
}

func (s *service) AddCategory(ctx context.Context, adminID uuid.UUID, in CategoryInput) (*categories.CategoryDTO, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, pkgerrors.Validation("category name is required")
	}
	var out categories.CategoryDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := categories.NewRepository(tx).Create(ctx, name)
		if err != nil {
			if db.IsUniqueViolation(err, categories.NameConstraint, "name") {
				return pkgerrors.Conflict(CategoryExistsMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
		}
		if err := audit(ctx, tx, adminID, enums.AdminActionAddCategory, row.ID, "Added book category: "+row.Name); err != nil {
			return err
		}
		out = categories.FromModel(*row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory detaches the category's books rather than deleting them.
func (s *service) DeleteCategory(ctx context.Context, adminID, categoryID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := categories.NewRepository(tx)
		row, err := r.FindByID(ctx, categoryID)
		if err != nil {
			return wrapLookup(err, CategoryNotFoundMessage, "load category")
		}
		if err := r.Delete(ctx, categoryID); err != nil {
			return wrapLookup(err, CategoryNotFoundMessage, "delete category")
		}
		return audit(ctx, tx, adminID, enums.AdminActionDeleteCategory, categoryID, "Deleted book category: "+row.Name)
	})
}

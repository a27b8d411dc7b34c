package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

const (
	CategoryNotFoundMessage = "category not found"
	DuplicateBookMessage    = "a book with this title already exists"
)

func (s *service) ListBooks(ctx context.Context) ([]books.BookDTO, error) {
	var out []books.BookDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := books.NewRepository(tx).ListBySource(ctx, enums.BookSourceAdmin)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list admin books")
		}
		out = books.FromRows(rows)
		return nil
	})
	return out, err
}

func (s *service) AddBook(ctx context.Context, adminID uuid.UUID, in BookInput) (*books.BookDTO, error) {
	if err := validateBook(&in); err != nil {
		return nil, err
	}
	var out books.BookDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		book := &models.Book{
			Title:       in.Title,
			Authors:     in.Authors,
			Description: in.Description,
			CoverImage:  in.CoverImage,
			Price:       in.Price,
			CategoryID:  in.CategoryID,
			Source:      enums.BookSourceAdmin,
			AddedBy:     &adminID,
		}
		if in.Quantity != nil {
			book.Quantity = *in.Quantity
		}
		bookRepo := books.NewRepository(tx)
		if err := bookRepo.Create(ctx, book); err != nil {
			if db.IsUniqueViolation(err, books.TitleSourceConstraint, "title", "source") {
				return pkgerrors.Conflict(DuplicateBookMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create book")
		}
		if err := audit(ctx, tx, adminID, enums.AdminActionAddBook, book.ID, "Added book: "+book.Title); err != nil {
			return err
		}
		return loadBookDTO(ctx, bookRepo, book.ID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) EditBook(ctx context.Context, adminID, bookID uuid.UUID, in BookInput) (*books.BookDTO, error) {
	if err := validateBook(&in); err != nil {
		return nil, err
	}
	var out books.BookDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		fields := map[string]any{
			"title":       in.Title,
			"authors":     in.Authors,
			"description": in.Description,
			"price":       in.Price,
			"category_id": in.CategoryID,
			"updated_at":  s.now(),
		}
		if in.CoverImage != nil {
			fields["cover_image"] = *in.CoverImage
		}
		if in.Quantity != nil {
			fields["quantity"] = *in.Quantity
		}
		bookRepo := books.NewRepository(tx)
		if err := bookRepo.UpdateFields(ctx, bookID, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NotFound(books.NotFoundMessage)
			}
			if db.IsUniqueViolation(err, books.TitleSourceConstraint, "title", "source") {
				return pkgerrors.Conflict(DuplicateBookMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update book")
		}
		if err := audit(ctx, tx, adminID, enums.AdminActionEditBook, bookID, "Edited book: "+in.Title); err != nil {
			return err
		}
		return loadBookDTO(ctx, bookRepo, bookID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) DeleteBook(ctx context.Context, adminID, bookID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := books.NewRepository(tx)
		book, err := r.FindByID(ctx, bookID)
		if err != nil {
			return wrapLookup(err, books.NotFoundMessage, "load book")
		}
		if err := r.Delete(ctx, bookID); err != nil {
			return wrapLookup(err, books.NotFoundMessage, "delete book")
		}
		return audit(ctx, tx, adminID, enums.AdminActionDeleteBook, bookID, "Deleted book: "+book.Title)
	})
}

func validateBook(in *BookInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Authors = strings.TrimSpace(in.Authors)
	if in.Title == "" {
		return pkgerrors.Validation("title is required")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return pkgerrors.Validation("price must not be negative")
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return pkgerrors.Validation("quantity must not be negative")
	}
	if in.CoverImage != nil && strings.TrimSpace(*in.CoverImage) == "" {
		in.CoverImage = nil
	}
	return nil
}

func ensureCategory(ctx context.Context, tx *gorm.DB, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := categories.NewRepository(tx).FindByID(ctx, *id); err != nil {
		return wrapLookup(err, CategoryNotFoundMessage, "load category")
	}
	return nil
}

func loadBookDTO(ctx context.Context, r *books.Repository, id uuid.UUID, out *books.BookDTO) error {
	row, err := r.Get(ctx, id)
	if err != nil {
		return wrapLookup(err, books.NotFoundMessage, "load book")
	}
	*out = books.FromRow(*row)
	return nil
}

// wrapLookup maps a missing row to a not-found with message and anything else to internal.
func wrapLookup(err error, message, action string) error {
	if mapped := repo.NotFound(err, message); mapped != err {
		return mapped
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

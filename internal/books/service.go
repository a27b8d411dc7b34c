package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/pagination"
	"github.com/angelmondragon/elibrary-backend/pkg/types"
)

const (
	relatedLimit = 4
	homeLimit    = 4

	NotFoundMessage = "book not found"
)

// Service serves the public catalog views.
type Service interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) (types.Page[BookDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*BookDetail, error)
	Home(ctx context.Context) (*HomeView, error)
	Categories(ctx context.Context) ([]categories.CategoryDTO, error)
}

type bookRepository interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]BookRow, error)
	Get(ctx context.Context, id uuid.UUID) (*BookRow, error)
	Related(ctx context.Context, categoryID, exclude uuid.UUID, limit int) ([]models.Book, error)
	Newest(ctx context.Context, n int) ([]models.Book, error)
}

type categoryRepository interface {
	List(ctx context.Context) ([]models.BookCategory, error)
}

type service struct {
	books      bookRepository
	categories categoryRepository
}

func NewService(books bookRepository, cats categoryRepository) (Service, error) {
	if books == nil {
		return nil, fmt.Errorf("book repository required")
	}
	if cats == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{books: books, categories: cats}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (types.Page[BookDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return types.Page[BookDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.books.List(ctx, filter, params)
	if err != nil {
		return types.Page[BookDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list books")
	}
	rows, next := pagination.Trim(rows, params.Limit, func(r BookRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return types.Page[BookDTO]{Items: FromRows(rows), NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BookDetail, error) {
	row, err := s.books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(NotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}

	detail := &BookDetail{Book: FromRow(*row), Related: []BookDTO{}}
	if row.CategoryID != nil {
		related, err := s.books.Related(ctx, *row.CategoryID, row.ID, relatedLimit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load related books")
		}
		detail.Related = FromModels(related)
	}
	return detail, nil
}

func (s *service) Home(ctx context.Context) (*HomeView, error) {
	newest, err := s.books.Newest(ctx, homeLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load newest books")
	}
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return &HomeView{Books: FromModels(newest), Categories: cats}, nil
}

func (s *service) Categories(ctx context.Context) ([]categories.CategoryDTO, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return categories.FromModels(cats), nil
}

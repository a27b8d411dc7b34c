package books

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

// BookDTO is the public shape of a catalog entry. Price is always the effective price.
type BookDTO struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Authors         string           `json:"authors"`
	Description     string           `json:"description"`
	CoverImage      *string          `json:"cover_image,omitempty"`
	PreviewLink     *string          `json:"preview_link,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	Quantity        int              `json:"quantity"`
	CategoryID      *uuid.UUID       `json:"category_id,omitempty"`
	CategoryName    *string          `json:"category_name,omitempty"`
	Source          enums.BookSource `json:"source"`
	AddedBy         *uuid.UUID       `json:"added_by,omitempty"`
	AddedByUsername *string          `json:"added_by_username,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// BookDetail is the single-book view with related titles.
type BookDetail struct {
	Book    BookDTO   `json:"book"`
	Related []BookDTO `json:"related_books"`
}

// HomeView is the landing page payload.
type HomeView struct {
	Books      []BookDTO                `json:"books"`
	Categories []categories.CategoryDTO `json:"categories"`
}

func FromModel(b models.Book) BookDTO {
	return BookDTO{
		ID:          b.ID,
		Title:       b.Title,
		Authors:     b.Authors,
		Description: b.Description,
		CoverImage:  b.CoverImage,
		PreviewLink: b.PreviewLink,
		Price:       b.EffectivePrice(),
		Quantity:    b.Quantity,
		CategoryID:  b.CategoryID,
		Source:      b.Source,
		AddedBy:     b.AddedBy,
		CreatedAt:   b.CreatedAt,
	}
}

func FromModels(list []models.Book) []BookDTO {
	out := make([]BookDTO, 0, len(list))
	for _, b := range list {
		out = append(out, FromModel(b))
	}
	return out
}

func FromRow(row BookRow) BookDTO {
	dto := FromModel(row.Book)
	dto.CategoryName = row.CategoryName
	dto.AddedByUsername = row.AddedByUsername
	return dto
}

func FromRows(rows []BookRow) []BookDTO {
	out := make([]BookDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromRow(r))
	}
	return out
}

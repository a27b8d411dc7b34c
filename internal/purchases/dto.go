package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

type PurchaseDTO struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	BookID       uuid.UUID       `json:"book_id"`
	OrderID      *uuid.UUID      `json:"order_id,omitempty"`
	Title        string          `json:"title,omitempty"`
	Authors      string          `json:"authors,omitempty"`
	CoverImage   *string         `json:"cover_image,omitempty"`
	Username     string          `json:"username,omitempty"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Price        decimal.Decimal `json:"price"`
}

func FromModel(rec models.PurchaseRecord, title string) PurchaseDTO {
	return PurchaseDTO{
		ID:           rec.ID,
		UserID:       rec.UserID,
		BookID:       rec.BookID,
		OrderID:      rec.OrderID,
		Title:        title,
		PurchaseDate: rec.PurchaseDate,
		Price:        rec.Price,
	}
}

func FromListings(rows []Listing) []PurchaseDTO {
	out := make([]PurchaseDTO, 0, len(rows))
	for _, row := range rows {
		dto := FromModel(row.PurchaseRecord, row.Title)
		dto.Authors = row.Authors
		dto.CoverImage = row.CoverImage
		dto.Username = row.Username
		out = append(out, dto)
	}
	return out
}

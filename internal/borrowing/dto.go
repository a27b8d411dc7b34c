package borrowing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

type BorrowDTO struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"user_id"`
	BookID           uuid.UUID          `json:"book_id"`
	OrderID          *uuid.UUID         `json:"order_id,omitempty"`
	Title            string             `json:"title,omitempty"`
	Authors          string             `json:"authors,omitempty"`
	CoverImage       *string            `json:"cover_image,omitempty"`
	Username         string             `json:"username,omitempty"`
	BorrowDate       time.Time          `json:"borrow_date"`
	ReturnDate       time.Time          `json:"return_date"`
	ActualReturnDate *time.Time         `json:"actual_return_date,omitempty"`
	DaysBorrowed     int                `json:"days_borrowed"`
	TotalCost        decimal.Decimal    `json:"total_cost"`
	Returned         bool               `json:"returned"`
	Status           enums.BorrowStatus `json:"status"`
}

// ReturnResult carries the closed record and the refund, zero when none was due.
type ReturnResult struct {
	Borrow       BorrowDTO       `json:"borrow"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	RefundDays   int             `json:"refund_days"`
}

// StatusAt derives the display status of a borrow at now.
func StatusAt(rec models.BorrowRecord, now time.Time) enums.BorrowStatus {
	switch {
	case rec.Returned:
		return enums.BorrowStatusReturned
	case now.After(rec.ReturnDate):
		return enums.BorrowStatusOverdue
	default:
		return enums.BorrowStatusActive
	}
}

// ElapsedDays counts whole days from borrow to actual return, or to now while out.
func ElapsedDays(rec models.BorrowRecord, now time.Time) int {
	end := now
	if rec.ActualReturnDate != nil {
		end = *rec.ActualReturnDate
	}
	if end.Before(rec.BorrowDate) {
		return 0
	}
	return int(end.Sub(rec.BorrowDate) / (24 * time.Hour))
}

func FromModel(rec models.BorrowRecord, title string) BorrowDTO {
	return BorrowDTO{
		ID:               rec.ID,
		UserID:           rec.UserID,
		BookID:           rec.BookID,
		OrderID:          rec.OrderID,
		Title:            title,
		BorrowDate:       rec.BorrowDate,
		ReturnDate:       rec.ReturnDate,
		ActualReturnDate: rec.ActualReturnDate,
		DaysBorrowed:     rec.DaysBorrowed,
		TotalCost:        rec.TotalCost,
		Returned:         rec.Returned,
		Status:           StatusAt(rec, time.Now().UTC()),
	}
}

// FromListing maps a joined row with the status derived at now.
func FromListing(row Listing, now time.Time) BorrowDTO {
	dto := FromModel(row.BorrowRecord, row.Title)
	dto.Authors = row.Authors
	dto.CoverImage = row.CoverImage
	dto.Username = row.Username
	dto.Status = StatusAt(row.BorrowRecord, now)
	return dto
}

func FromListings(rows []Listing, now time.Time) []BorrowDTO {
	out := make([]BorrowDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromListing(r, now))
	}
	return out
}

package payloads

import (
	"time"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted once per paid order, from the cart or a direct checkout.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	OrderType     enums.OrderType     `json:"order_type"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	BookIDs       []uuid.UUID         `json:"book_ids"`
	Titles        []string            `json:"titles"`
}

type BookBorrowedEvent struct {
	BorrowID   uuid.UUID       `json:"borrow_id"`
	UserID     uuid.UUID       `json:"user_id"`
	BookID     uuid.UUID       `json:"book_id"`
	Title      string          `json:"title"`
	Days       int             `json:"days"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	ReturnDate time.Time       `json:"return_date"`
}

type BookReturnedEvent struct {
	BorrowID     uuid.UUID       `json:"borrow_id"`
	UserID       uuid.UUID       `json:"user_id"`
	BookID       uuid.UUID       `json:"book_id"`
	Title        string          `json:"title"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	ReturnedAt   time.Time       `json:"returned_at"`
}

// RefundIssuedEvent shares the borrow aggregate with BookReturnedEvent.
type RefundIssuedEvent struct {
	RefundID uuid.UUID       `json:"refund_id"`
	BorrowID uuid.UUID       `json:"borrow_id"`
	UserID   uuid.UUID       `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Days     int             `json:"days"`
	Reason   string          `json:"reason"`
}

// BookPurchasedEvent covers the single-book buy; cart purchases are summarized by OrderPlacedEvent.
type BookPurchasedEvent struct {
	PurchaseID uuid.UUID       `json:"purchase_id"`
	OrderID    *uuid.UUID      `json:"order_id,omitempty"`
	UserID     uuid.UUID       `json:"user_id"`
	BookID     uuid.UUID       `json:"book_id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
}

type BorrowOverdueEvent struct {
	BorrowID    uuid.UUID `json:"borrow_id"`
	UserID      uuid.UUID `json:"user_id"`
	BookID      uuid.UUID `json:"book_id"`
	Title       string    `json:"title"`
	ReturnDate  time.Time `json:"return_date"`
	DaysOverdue int       `json:"days_overdue"`
}

package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultBookPrice is charged when a book has no explicit price.
var DefaultBookPrice = decimal.RequireFromString("29.99")

// All lists every persisted model. Used for sqlite auto-migration in dev and tests.
func All() []any {
	return []any{
		&BookCategory{},
		&User{},
		&Book{},
		&BorrowRecord{},
		&PurchaseRecord{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Refund{},
		&AdminLog{},
		&StockTransaction{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

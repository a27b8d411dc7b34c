package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

// BorrowRecord is a time-boxed loan. At most one unreturned record may exist per
// (user, book); ux_borrowed_books_active enforces it.
type BorrowRecord struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_borrowed_books_active,priority:1,where:returned = false"`
	BookID           uuid.UUID       `gorm:"column:book_id;type:uuid;not null;uniqueIndex:ux_borrowed_books_active,priority:2,where:returned = false"`
	OrderID          *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	BorrowDate       time.Time       `gorm:"column:borrow_date;not null"`
	ReturnDate       time.Time       `gorm:"column:return_date;not null"`
	DaysBorrowed     int             `gorm:"column:days_borrowed;not null"`
	TotalCost        decimal.Decimal `gorm:"column:total_cost;type:numeric(10,2);not null"`
	Returned         bool            `gorm:"column:returned;not null"`
	ActualReturnDate *time.Time      `gorm:"column:actual_return_date"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (BorrowRecord) TableName() string { return "borrowed_books" }

func (r *BorrowRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// PurchaseRecord grants a reader permanent access to a book at a price snapshot.
type PurchaseRecord struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_purchased_books_user_book,priority:1"`
	BookID       uuid.UUID       `gorm:"column:book_id;type:uuid;not null;uniqueIndex:ux_purchased_books_user_book,priority:2"`
	OrderID      *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	PurchaseDate time.Time       `gorm:"column:purchase_date;not null"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
}

func (PurchaseRecord) TableName() string { return "purchased_books" }

func (r *PurchaseRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Refund records money returned for an early borrow return.
type Refund struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BorrowID  uuid.UUID       `gorm:"column:borrow_id;type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	Reason    string          `gorm:"column:reason;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *Refund) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// CartItem holds one book in a reader's cart. One row per (user, book).
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_cart_items_user_book,priority:1"`
	BookID    uuid.UUID `gorm:"column:book_id;type:uuid;not null;uniqueIndex:ux_cart_items_user_book,priority:2"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Order is immutable once written by checkout.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentDetails string              `gorm:"column:payment_details;not null"`
	OrderType      enums.OrderType     `gorm:"column:order_type;not null"`
	OrderDate      time.Time           `gorm:"column:order_date;not null"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

type OrderItem struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	BookID   uuid.UUID       `gorm:"column:book_id;type:uuid;not null"`
	Quantity int             `gorm:"column:quantity;not null"`
	Price    decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// StockTransaction belongs to the stock-counted borrow/buy path, which decrements
// books.quantity instead of granting unlimited copies.
type StockTransaction struct {
	ID         uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID                    `gorm:"column:user_id;type:uuid;not null;index"`
	BookID     uuid.UUID                    `gorm:"column:book_id;type:uuid;not null;index"`
	Type       enums.StockTransactionType   `gorm:"column:transaction_type;not null"`
	Status     enums.StockTransactionStatus `gorm:"column:status;not null"`
	Price      *decimal.Decimal             `gorm:"column:price;type:numeric(10,2)"`
	DueDate    *time.Time                   `gorm:"column:due_date"`
	ReturnDate *time.Time                   `gorm:"column:return_date"`
	CreatedAt  time.Time                    `gorm:"column:created_at;autoCreateTime"`
}

func (t *StockTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

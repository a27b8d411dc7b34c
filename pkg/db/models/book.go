package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

// Book is a catalog entry, either imported from an external catalog or entered by an admin.
type Book struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Title       string           `gorm:"column:title;not null;uniqueIndex:ux_books_title_source,priority:1"`
	Authors     string           `gorm:"column:authors;not null;default:''"`
	Description string           `gorm:"column:description;not null;default:''"`
	CoverImage  *string          `gorm:"column:cover_image"`
	PreviewLink *string          `gorm:"column:preview_link"`
	Price       *decimal.Decimal `gorm:"column:price;type:numeric(10,2)"`
	Quantity    int              `gorm:"column:quantity;not null;default:0"`
	CategoryID  *uuid.UUID       `gorm:"column:category_id;type:uuid;index"`
	Source      enums.BookSource `gorm:"column:source;not null;uniqueIndex:ux_books_title_source,priority:2"`
	AddedBy     *uuid.UUID       `gorm:"column:added_by;type:uuid"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// EffectivePrice falls back to DefaultBookPrice when no price is set.
func (b Book) EffectivePrice() decimal.Decimal {
	if b.Price == nil {
		return DefaultBookPrice
	}
	return *b.Price
}

// BookCategory groups books for browsing and catalog sync.
type BookCategory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:ux_book_categories_name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (BookCategory) TableName() string { return "book_categories" }

func (c *BookCategory) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

// TransactionRow is an order joined with its buyer and a representative title.
type TransactionRow struct {
	ID             uuid.UUID           `gorm:"column:id"`
	UserID         uuid.UUID           `gorm:"column:user_id"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method"`
	PaymentDetails string              `gorm:"column:payment_details"`
	OrderType      enums.OrderType     `gorm:"column:order_type"`
	OrderDate      time.Time           `gorm:"column:order_date"`
	Username       string              `gorm:"column:username"`
	Title          string              `gorm:"column:title"`
}

type OrderItemDTO struct {
	BookID   uuid.UUID       `json:"book_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderDTO struct {
	ID             uuid.UUID           `json:"id"`
	UserID         uuid.UUID           `json:"user_id"`
	Username       string              `json:"username,omitempty"`
	Title          string              `json:"title,omitempty"`
	OrderType      enums.OrderType     `json:"order_type"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	PaymentDetails string              `json:"payment_details"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	OrderDate      time.Time           `json:"order_date"`
	Items          []OrderItemDTO      `json:"items,omitempty"`
}

func FromModel(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:             o.ID,
		UserID:         o.UserID,
		OrderType:      o.OrderType,
		PaymentMethod:  o.PaymentMethod,
		PaymentDetails: o.PaymentDetails,
		TotalAmount:    o.TotalAmount,
		OrderDate:      o.OrderDate,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{BookID: item.BookID, Quantity: item.Quantity, Price: item.Price})
	}
	return dto
}

func FromModels(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, FromModel(o))
	}
	return out
}

func FromTransactions(rows []TransactionRow) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, OrderDTO{
			ID:             row.ID,
			UserID:         row.UserID,
			Username:       row.Username,
			Title:          row.Title,
			OrderType:      row.OrderType,
			PaymentMethod:  row.PaymentMethod,
			PaymentDetails: row.PaymentDetails,
			TotalAmount:    row.TotalAmount,
			OrderDate:      row.OrderDate,
		})
	}
	return out
}

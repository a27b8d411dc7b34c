package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineDTO struct {
	ID         uuid.UUID       `json:"id"`
	BookID     uuid.UUID       `json:"book_id"`
	Title      string          `json:"title"`
	Authors    string          `json:"authors"`
	CoverImage *string         `json:"cover_image,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Summary is both the cart view and the checkout page.
type Summary struct {
	Items    []LineDTO       `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
	Empty    bool            `json:"empty"`
}

// Summarize prices every line at its effective price.
func Summarize(lines []Line) Summary {
	out := Summary{Items: make([]LineDTO, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		price := l.EffectivePrice()
		lineTotal := price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		out.Items = append(out.Items, LineDTO{
			ID:         l.ID,
			BookID:     l.BookID,
			Title:      l.Title,
			Authors:    l.Authors,
			CoverImage: l.CoverImage,
			Price:      price,
			Quantity:   l.Quantity,
			LineTotal:  lineTotal,
		})
		out.Subtotal = out.Subtotal.Add(lineTotal)
	}
	out.Total = out.Subtotal
	out.Empty = len(lines) == 0
	return out
}

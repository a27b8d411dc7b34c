package checkout

import (
	"strings"
	"unicode"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

// Payment is the simulated instrument a reader submits. Only a masked tail is persisted.
type Payment struct {
	Method     string `json:"payment_method" validate:"required"`
	CardNumber string `json:"card_number,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Resolve validates the instrument for its method and returns the masked details.
func (p Payment) Resolve() (enums.PaymentMethod, string, error) {
	if strings.TrimSpace(p.Method) == "" {
		return "", "", pkgerrors.Validation("please select a payment method")
	}
	method, err := enums.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(p.Method)))
	if err != nil {
		return "", "", pkgerrors.Validation("invalid payment method")
	}
	if method.RequiresCardNumber() {
		card := compact(p.CardNumber)
		if card == "" {
			return "", "", pkgerrors.Validation("please enter a card number")
		}
		return method, "card ****" + lastFour(card), nil
	}
	phone := compact(p.Phone)
	if phone == "" {
		return "", "", pkgerrors.Validation("please enter your phone number")
	}
	return method, "phone ***" + lastFour(phone), nil
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, s)
}

func lastFour(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return string(r)
	}
	return string(r[len(r)-4:])
}

package enums

import "fmt"

// PaymentMethod describes how a reader settles an order.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodAlipay PaymentMethod = "alipay"
	PaymentMethodWePay  PaymentMethod = "wepay"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodAlipay,
	PaymentMethodWePay,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresCardNumber reports whether the method is settled against a card number
// rather than a phone-linked wallet.
func (p PaymentMethod) RequiresCardNumber() bool {
	return p == PaymentMethodCard
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

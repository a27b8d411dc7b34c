package enums

import "fmt"

// OrderType distinguishes purchase orders from borrow-fee orders.
type OrderType string

const (
	OrderTypePurchase OrderType = "purchase"
	OrderTypeBorrow   OrderType = "borrow"
)

var validOrderTypes = []OrderType{OrderTypePurchase, OrderTypeBorrow}

func (o OrderType) String() string {
	return string(o)
}

func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType. Direct checkout uses the
// same values for its buy/borrow action, with "buy" accepted as purchase.
func ParseOrderType(value string) (OrderType, error) {
	if value == "buy" {
		return OrderTypePurchase, nil
	}
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}

package enums

import "fmt"

// OutboxAggregateType names the ledger entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateBorrow   OutboxAggregateType = "borrow"
	AggregatePurchase OutboxAggregateType = "purchase"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateBorrow,
	AggregatePurchase,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a ledger event published through the outbox.
type OutboxEventType string

const (
	EventOrderPlaced   OutboxEventType = "order_placed"
	EventBookBorrowed  OutboxEventType = "book_borrowed"
	EventBookReturned  OutboxEventType = "book_returned"
	EventRefundIssued  OutboxEventType = "refund_issued"
	EventBookPurchased OutboxEventType = "book_purchased"
	EventBorrowOverdue OutboxEventType = "borrow_overdue"
)

var validEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventBookBorrowed,
	EventBookReturned,
	EventRefundIssued,
	EventBookPurchased,
	EventBorrowOverdue,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

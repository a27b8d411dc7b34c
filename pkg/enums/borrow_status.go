package enums

// BorrowStatus is derived from a borrow record at read time; it is never stored.
type BorrowStatus string

const (
	BorrowStatusActive   BorrowStatus = "Active"
	BorrowStatusReturned BorrowStatus = "Returned"
	BorrowStatusOverdue  BorrowStatus = "Overdue"
)

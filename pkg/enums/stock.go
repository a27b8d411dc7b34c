package enums

// StockTransactionType is the kind of stock-counted transaction.
type StockTransactionType string

const (
	StockTransactionBorrow StockTransactionType = "borrow"
	StockTransactionBuy    StockTransactionType = "buy"
)

// StockTransactionStatus tracks whether a stock loan is still out.
type StockTransactionStatus string

const (
	StockStatusActive    StockTransactionStatus = "active"
	StockStatusCompleted StockTransactionStatus = "completed"
)

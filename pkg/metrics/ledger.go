package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LedgerMetrics tracks business outcomes of the borrow, purchase and checkout flows.
type LedgerMetrics struct {
	borrows      prometheus.Counter
	returns      prometheus.Counter
	refunds      prometheus.Counter
	refundAmount prometheus.Counter
	purchases    *prometheus.CounterVec
	orders       *prometheus.CounterVec
	imports      *prometheus.CounterVec
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		borrows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "borrows_total", Help: "Borrow records created.",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "returns_total", Help: "Borrowed books returned.",
		}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "refunds_total", Help: "Early return refunds issued.",
		}),
		refundAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "refund_amount_dollars_total", Help: "Sum of refunded amounts.",
		}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "purchases_total", Help: "Purchase records created.",
		}, []string{"channel"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_total", Help: "Orders placed.",
		}, []string{"order_type", "payment_method"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "catalog_imports_total", Help: "Books newly imported from providers.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.borrows, m.returns, m.refunds, m.refundAmount, m.purchases, m.orders, m.imports)
	return m
}

func (m *LedgerMetrics) IncBorrow() {
	if m == nil || m.borrows == nil {
		return
	}
	m.borrows.Inc()
}

// IncReturn records a return and, when amount is positive, the refund.
func (m *LedgerMetrics) IncReturn(refund decimal.Decimal) {
	if m == nil || m.returns == nil {
		return
	}
	m.returns.Inc()
	if refund.IsPositive() {
		m.refunds.Inc()
		m.refundAmount.Add(refund.InexactFloat64())
	}
}

// IncPurchase counts purchases; channel is "direct", "cart" or "stock".
func (m *LedgerMetrics) IncPurchase(channel string, n int) {
	if m == nil || m.purchases == nil || n <= 0 {
		return
	}
	m.purchases.WithLabelValues(labelOrUnknown(channel)).Add(float64(n))
}

func (m *LedgerMetrics) IncOrder(orderType, method string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(labelOrUnknown(orderType), labelOrUnknown(method)).Inc()
}

func (m *LedgerMetrics) IncImported(source string, n int) {
	if m == nil || m.imports == nil || n <= 0 {
		return
	}
	m.imports.WithLabelValues(labelOrUnknown(source)).Add(float64(n))
}

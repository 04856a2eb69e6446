package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics counts the money-lifecycle events of the settlement core.
// All methods are nil-safe so services can run unmetered in tests.
type CoreMetrics struct {
	ordersCreated        *prometheus.CounterVec
	paymentVerifications *prometheus.CounterVec
	settlements          prometheus.Counter
	withdrawalRequests   *prometheus.CounterVec
}

// NewCoreMetrics registers the settlement counters on the provided registerer.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	if reg == nil {
		return &CoreMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, by payment method.",
	}, []string{"payment_method"})
	paymentVerifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Gateway payment verification attempts, by result.",
	}, []string{"result"})
	settlements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_settlements_total",
		Help: "Seller-share transfers from pending to available balance.",
	})
	withdrawalRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "withdrawal_requests_total",
		Help: "Withdrawal requests, by result.",
	}, []string{"result"})
	reg.MustRegister(ordersCreated, paymentVerifications, settlements, withdrawalRequests)
	return &CoreMetrics{
		ordersCreated:        ordersCreated,
		paymentVerifications: paymentVerifications,
		settlements:          settlements,
		withdrawalRequests:   withdrawalRequests,
	}
}

// IncOrderCreated records a created order for the given payment method.
func (m *CoreMetrics) IncOrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncPaymentVerification records a verification attempt outcome (ok/mismatch).
func (m *CoreMetrics) IncPaymentVerification(result string) {
	if m == nil || m.paymentVerifications == nil {
		return
	}
	m.paymentVerifications.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncSettlement records one pending-to-available transfer.
func (m *CoreMetrics) IncSettlement() {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.Inc()
}

// IncWithdrawalRequest records a withdrawal request outcome (accepted/rejected).
func (m *CoreMetrics) IncWithdrawalRequest(result string) {
	if m == nil || m.withdrawalRequests == nil {
		return
	}
	m.withdrawalRequests.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

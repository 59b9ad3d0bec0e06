// Package metrics exposes Prometheus counters for the booking and payment
// flows.  A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	bookings      *prometheus.CounterVec
	payments      prometheus.Counter
	paymentAmount prometheus.Counter
	conflicts     *prometheus.CounterVec
	notifyErrors  prometheus.Counter
	gatherer      prometheus.Gatherer
}

// New registers the collectors on reg.  Use prometheus.NewRegistry() in
// tests to avoid duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by resulting status.",
		}, []string{"status"}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "payments_recorded_total",
			Help:      "Payments appended to the ledger.",
		}),
		paymentAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "payments_amount_total",
			Help:      "Sum of recorded payment amounts.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "transaction_conflicts_total",
			Help:      "Transactions that lost a race or timed out waiting for locks.",
		}, []string{"op"}),
		notifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "notification_publish_errors_total",
			Help:      "Booking events that could not be published.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.bookings, m.payments, m.paymentAmount, m.conflicts, m.notifyErrors)
	return m
}

func (m *Metrics) BookingTransition(status string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(status).Inc()
}

func (m *Metrics) PaymentRecorded(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payments.Inc()
	m.paymentAmount.Add(amount.InexactFloat64())
}

func (m *Metrics) Conflict(op string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) NotifyError() {
	if m == nil {
		return
	}
	m.notifyErrors.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "turfbook"

// Reservation outcomes.
const (
	OutcomeCreated     = "created"
	OutcomeUnavailable = "unavailable"
	OutcomeConflict    = "conflict"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Payment verification results.
const (
	PaymentVerified = "verified"
	PaymentRejected = "rejected"
	PaymentReplayed = "replayed"
	PaymentFailed   = "failed"
	// PaymentLate is a payment captured after its booking was already
	// cancelled. The advance is owed back.
	PaymentLate = "late"
)

// Metrics holds the booking collectors. The zero value is not usable; build
// it with New.
type Metrics struct {
	reservations         *prometheus.CounterVec
	slotConflicts        prometheus.Counter
	slotsReleased        prometheus.Counter
	paymentVerifications *prometheus.CounterVec
	cancellations        *prometheus.CounterVec
	expirations          prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_claim_conflicts_total",
			Help:      "Slot claims lost to a concurrent reservation.",
		}),
		slotsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_released_total",
			Help:      "Slots returned to the pool by rollback, cancellation or expiry.",
		}),
		paymentVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Payment verifications by result.",
		}, []string{"result"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_cancellations_total",
			Help:      "Cancelled bookings by whether a refund is owed.",
		}, []string{"refund"}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_expirations_total",
			Help:      "Pending bookings cancelled by the sweeper.",
		}),
	}
	reg.MustRegister(
		m.reservations,
		m.slotConflicts,
		m.slotsReleased,
		m.paymentVerifications,
		m.cancellations,
		m.expirations,
	)
	return m
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) Reservation(outcome string) {
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SlotConflict() {
	m.slotConflicts.Inc()
}

func (m *Metrics) SlotsReleased(n int64) {
	if n > 0 {
		m.slotsReleased.Add(float64(n))
	}
}

func (m *Metrics) PaymentVerification(result string) {
	m.paymentVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Cancellation(refundOwed bool) {
	label := "none"
	if refundOwed {
		label = "pending"
	}
	m.cancellations.WithLabelValues(label).Inc()
}

func (m *Metrics) Expiration() {
	m.expirations.Inc()
}

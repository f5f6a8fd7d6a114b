package donation

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/payment"
)

// Metrics counts donation lifecycle activity. A nil *Metrics records nothing.
type Metrics struct {
	donationsRecorded *prometheus.CounterVec
	paymentIntents    *prometheus.CounterVec
	paymentEvents     *prometheus.CounterVec
}

// NewMetrics registers the donation counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		donationsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giveback",
			Name:      "donations_recorded_total",
			Help:      "Donations persisted in pending status.",
		}, []string{"frequency", "anonymous"}),
		paymentIntents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giveback",
			Name:      "payment_intents_total",
			Help:      "Payment intent creation attempts by result.",
		}, []string{"result"}),
		paymentEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giveback",
			Name:      "payment_events_total",
			Help:      "Payment processor events received by type and reconciliation outcome.",
		}, []string{"type", "outcome"}),
	}
}

func (m *Metrics) donationRecorded(d *models.Donation) {
	if m == nil {
		return
	}
	m.donationsRecorded.WithLabelValues(string(d.Frequency), strconv.FormatBool(d.IsAnonymous)).Inc()
}

func (m *Metrics) paymentIntent(result string) {
	if m == nil {
		return
	}
	m.paymentIntents.WithLabelValues(result).Inc()
}

func (m *Metrics) paymentEvent(eventType string, outcome Outcome) {
	if m == nil {
		return
	}
	// Keep label cardinality bounded: the processor has hundreds of event types.
	switch eventType {
	case payment.EventPaymentSucceeded, payment.EventPaymentFailed:
	case "":
		eventType = "unverified"
	default:
		eventType = "other"
	}
	m.paymentEvents.WithLabelValues(eventType, string(outcome)).Inc()
}

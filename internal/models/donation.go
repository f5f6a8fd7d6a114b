package models

// Frequency is how often a donation repeats.
type Frequency string

const (
	FrequencyOneTime Frequency = "one-time"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a recognized frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneTime, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Recurring reports whether donations with this frequency repeat.
func (f Frequency) Recurring() bool {
	return f == FrequencyMonthly || f == FrequencyYearly
}

// PaymentMethod tags how the donor pays.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodMpesa      PaymentMethod = "mpesa"
	PaymentMethodPaypal     PaymentMethod = "paypal"

	// Processor-specific method types, accepted only when a payment is
	// initiated through the card processor.
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodLink PaymentMethod = "link"
)

// Valid reports whether m is one of the methods a pledge can be recorded with.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodMpesa, PaymentMethodPaypal:
		return true
	}
	return false
}

// DonationStatus is the lifecycle state of a donation.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
)

// Donation is a pledge or payment made to an organization.
type Donation struct {
	// ID is the unique identifier for the donation (UUID format).
	ID string

	// Amount is the donated amount in minor currency units (cents for USD).
	Amount int64

	// Currency is the lowercase ISO 4217 code, e.g. "usd".
	Currency string

	Frequency     Frequency
	PaymentMethod PaymentMethod

	// IsAnonymous donations have no donor linked to them.
	IsAnonymous bool

	// NextPaymentDate is the Unix timestamp of the next charge for recurring
	// pledges. Zero when not set.
	NextPaymentDate int64

	Status DonationStatus

	// PaymentIntentID is the processor's payment intent reference.
	// Empty until a payment is initiated.
	PaymentIntentID string

	OrganizationID string

	CreatedAt int64
	UpdatedAt int64
}

// PaymentEvent is a verified processor notification that reached the
// reconciliation step.
type PaymentEvent struct {
	// ID is the processor's event ID.
	ID string

	Type            string
	DonationID      string
	PaymentIntentID string

	// Outcome is what reconciliation did with the event.
	Outcome string

	ReceivedAt int64
}

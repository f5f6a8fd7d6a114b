package donation

import (
	"errors"
	"strings"
	"time"

	"github.com/mmynk/giveback/internal/calculator"
	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/payment"
)

// RecordRequest is the input to RecordDonation.
type RecordRequest struct {
	// DonorID is the authenticated caller. Required unless IsAnonymous.
	DonorID string

	// Amount is in major currency units, e.g. 50 or 19.99.
	Amount float64

	// Currency defaults to the manager's default currency when empty.
	Currency string

	Frequency      models.Frequency
	PaymentMethod  models.PaymentMethod
	OrganizationID string
	IsAnonymous    bool

	// NextPaymentDate is only allowed for recurring donations. When omitted
	// for a recurring donation it is computed from the frequency.
	NextPaymentDate *time.Time
}

// PaymentRequest is the input to InitiatePayment.
type PaymentRequest struct {
	DonorID        string
	Amount         float64
	Currency       string
	OrganizationID string
	Frequency      models.Frequency
	PaymentMethod  models.PaymentMethod
	IsAnonymous    bool
}

// Validate checks the request without touching storage.
func (r RecordRequest) Validate() error {
	_, err := r.donation(defaultCurrency, time.Now())
	return err
}

// Validate checks the request without touching storage.
func (r PaymentRequest) Validate() error {
	_, _, err := r.donation(time.Now())
	return err
}

// donation validates the request and builds the pending donation it describes.
func (r RecordRequest) donation(defaultCurrency string, now time.Time) (*models.Donation, error) {
	currency := r.Currency
	if strings.TrimSpace(currency) == "" {
		currency = defaultCurrency
	}

	d, err := buildDonation(r.DonorID, r.Amount, currency, r.Frequency, r.OrganizationID, r.IsAnonymous)
	if err != nil {
		return nil, err
	}

	if !r.PaymentMethod.Valid() {
		return nil, invalid("payment_method", "must be one of credit_card, mpesa, paypal")
	}
	d.PaymentMethod = r.PaymentMethod

	switch {
	case r.NextPaymentDate != nil && !d.Frequency.Recurring():
		return nil, invalid("next_payment_date", "only allowed for monthly or yearly donations")
	case r.NextPaymentDate != nil:
		if !r.NextPaymentDate.After(now) {
			return nil, invalid("next_payment_date", "must be in the future")
		}
		d.NextPaymentDate = r.NextPaymentDate.Unix()
	default:
		if next, ok := calculator.NextPaymentDate(now, d.Frequency); ok {
			d.NextPaymentDate = next.Unix()
		}
	}

	return d, nil
}

// donation validates the request and returns the pending donation together
// with the processor payment method types to charge with.
func (r PaymentRequest) donation(now time.Time) (*models.Donation, []string, error) {
	if strings.TrimSpace(r.Currency) == "" {
		return nil, nil, invalid("currency", "is required")
	}

	d, err := buildDonation(r.DonorID, r.Amount, r.Currency, r.Frequency, r.OrganizationID, r.IsAnonymous)
	if err != nil {
		return nil, nil, err
	}

	methodTypes, ok := payment.MethodTypes(r.PaymentMethod)
	if !ok {
		return nil, nil, invalid("payment_method", "%q cannot be charged by the payment processor", r.PaymentMethod)
	}
	d.PaymentMethod = r.PaymentMethod

	if next, ok := calculator.NextPaymentDate(now, d.Frequency); ok {
		d.NextPaymentDate = next.Unix()
	}

	return d, methodTypes, nil
}

// buildDonation checks the fields shared by every entry point.
func buildDonation(donorID string, amount float64, currency string, frequency models.Frequency,
	organizationID string, anonymous bool) (*models.Donation, error) {
	if !(amount > 0) {
		return nil, invalid("amount", "donation amount must be positive")
	}

	currency, err := calculator.NormalizeCurrency(currency)
	if err != nil {
		return nil, invalid("currency", "%v", err)
	}

	minor, err := calculator.ToMinorUnits(amount, currency)
	if err != nil {
		if errors.Is(err, calculator.ErrNonPositiveAmount) {
			return nil, invalid("amount", "donation amount must be positive")
		}
		return nil, invalid("amount", "%v", err)
	}

	if !frequency.Valid() {
		return nil, invalid("frequency", "must be one of one-time, monthly, yearly")
	}
	if strings.TrimSpace(organizationID) == "" {
		return nil, invalid("organization_id", "is required")
	}
	if !anonymous && donorID == "" {
		return nil, invalid("donor", "a donor identity is required unless the donation is anonymous")
	}

	return &models.Donation{
		Amount:         minor,
		Currency:       currency,
		Frequency:      frequency,
		OrganizationID: organizationID,
		IsAnonymous:    anonymous,
		Status:         models.DonationStatusPending,
	}, nil
}

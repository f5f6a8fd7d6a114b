// Package payment is the client side of the external card processor: creating
// payment intents and verifying the signed events the processor sends back.
package payment

import (
	"context"
	"errors"

	"github.com/mmynk/giveback/internal/models"
)

var (
	// ErrGateway is returned when the processor call fails or times out.
	ErrGateway = errors.New("payment gateway error")

	// ErrAuthenticity is returned when an event signature does not verify or
	// the payload cannot be parsed.
	ErrAuthenticity = errors.New("payment event failed verification")
)

// Event types the processor sends that reconciliation cares about.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// MetadataDonationID is the intent metadata key carrying the donation ID.
const MetadataDonationID = "donation_id"

// IntentRequest describes a payment intent to create.
type IntentRequest struct {
	// Amount is in minor currency units.
	Amount             int64
	Currency           string
	PaymentMethodTypes []string
	Metadata           map[string]string

	// IdempotencyKey makes retried creations return the original intent.
	IdempotencyKey string
}

// Intent is the processor's handle for a charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified processor notification.
type Event struct {
	ID   string
	Type string

	// PaymentIntentID and Metadata are set for payment_intent.* events.
	PaymentIntentID string
	Metadata        map[string]string
}

// Gateway is the contract the donation core needs from the processor.
type Gateway interface {
	// CreatePaymentIntent asks the processor for a new intent. Errors wrap
	// ErrGateway.
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)

	// VerifyAndParseEvent checks the signature header against the raw payload
	// using secret and decodes the event. Errors wrap ErrAuthenticity.
	VerifyAndParseEvent(payload []byte, signatureHeader, secret string) (*Event, error)
}

// MethodTypes maps a donation payment method to the processor's payment
// method types. The second result is false for methods the processor cannot
// charge, such as mobile money.
func MethodTypes(method models.PaymentMethod) ([]string, bool) {
	switch method {
	case models.PaymentMethodCreditCard, models.PaymentMethodCard:
		return []string{"card"}, true
	case models.PaymentMethodLink:
		return []string{"link", "card"}, true
	case models.PaymentMethodPaypal:
		return []string{"paypal"}, true
	default:
		return nil, false
	}
}

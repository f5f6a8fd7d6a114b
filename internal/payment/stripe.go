package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Ensure StripeGateway implements Gateway
var _ Gateway = (*StripeGateway)(nil)

// StripeConfig configures the Stripe-backed gateway.
type StripeConfig struct {
	// SecretKey is the Stripe API key (sk_...).
	SecretKey string

	// APIURL overrides the API base URL, e.g. for stripe-mock.
	APIURL string

	// MaxNetworkRetries is how often the client retries failed calls itself.
	// Retries reuse the request's idempotency key.
	MaxNetworkRetries int64

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// StripeGateway implements Gateway with the Stripe API.
type StripeGateway struct {
	intents *paymentintent.Client
	logger  *slog.Logger
}

// NewStripeGateway creates a gateway with its own Stripe backend, so the
// process-wide stripe.Key is never touched.
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     &stripeLogger{logger: logger},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &StripeGateway{
		intents: &paymentintent.Client{B: backend, Key: cfg.SecretKey},
		logger:  logger,
	}
}

// CreatePaymentIntent creates a Stripe PaymentIntent.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice(req.PaymentMethodTypes),
	}
	params.Context = ctx
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment intent: %w", ErrGateway, err)
	}

	g.logger.Debug("Payment intent created", "payment_intent_id", pi.ID, "amount", req.Amount, "currency", req.Currency)

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// VerifyAndParseEvent validates a Stripe-Signature header and decodes the event.
// API version mismatches are tolerated: only the intent ID and metadata are read.
func (g *StripeGateway) VerifyAndParseEvent(payload []byte, signatureHeader, secret string) (*Event, error) {
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrAuthenticity)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, err)
	}

	event := &Event{ID: ev.ID, Type: string(ev.Type)}

	if strings.HasPrefix(event.Type, "payment_intent.") && ev.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: decode payment intent: %w", ErrAuthenticity, err)
		}
		event.PaymentIntentID = pi.ID
		event.Metadata = pi.Metadata
	}

	return event, nil
}

// stripeLogger routes stripe-go's internal logging through slog.
type stripeLogger struct {
	logger *slog.Logger
}

func (l *stripeLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "stripe")
}

// Package donation implements the donation lifecycle: recording pledges,
// starting card payments, and reconciling the processor's payment events.
package donation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/payment"
	"github.com/mmynk/giveback/internal/storage"
)

const (
	defaultCurrency       = "usd"
	defaultGatewayTimeout = 10 * time.Second
)

// Options configures a Manager or Reconciler. Zero values use defaults.
type Options struct {
	// DefaultCurrency applies to recorded pledges that name no currency.
	DefaultCurrency string

	// GatewayTimeout bounds each payment processor call.
	GatewayTimeout time.Duration

	Metrics *Metrics
	Logger  *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = defaultCurrency
	}
	if o.GatewayTimeout <= 0 {
		o.GatewayTimeout = defaultGatewayTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// PaymentResult is returned by InitiatePayment.
type PaymentResult struct {
	DonationID      string
	PaymentIntentID string

	// ClientSecret lets the client confirm the payment with the processor.
	ClientSecret string
}

// Manager creates donations and starts their payments.
type Manager struct {
	store   storage.Store
	gateway payment.Gateway
	opts    Options
}

// NewManager creates a Manager backed by store and gateway.
func NewManager(store storage.Store, gateway payment.Gateway, opts Options) *Manager {
	return &Manager{
		store:   store,
		gateway: gateway,
		opts:    opts.withDefaults(),
	}
}

// RecordDonation validates req and persists a pending donation. For
// non-anonymous donations the caller is linked as the only donor in the same
// transaction; anonymous donations never get a donor link.
func (m *Manager) RecordDonation(ctx context.Context, req RecordRequest) (*models.Donation, error) {
	d, err := req.donation(m.opts.DefaultCurrency, m.opts.Now())
	if err != nil {
		return nil, err
	}

	if err := m.create(ctx, d, req.DonorID); err != nil {
		return nil, err
	}

	return d, nil
}

// InitiatePayment records a pending donation and creates a payment intent for
// it. The intent carries the donation ID as metadata so the processor's events
// can be matched back to the donation.
//
// If the processor call fails the donation stays pending without an intent and
// an error wrapping payment.ErrGateway is returned.
func (m *Manager) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	d, methodTypes, err := req.donation(m.opts.Now())
	if err != nil {
		return nil, err
	}

	if err := m.create(ctx, d, req.DonorID); err != nil {
		return nil, err
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, m.opts.GatewayTimeout)
	defer cancel()

	intent, err := m.gateway.CreatePaymentIntent(gatewayCtx, payment.IntentRequest{
		Amount:             d.Amount,
		Currency:           d.Currency,
		PaymentMethodTypes: methodTypes,
		Metadata:           map[string]string{payment.MetadataDonationID: d.ID},
		IdempotencyKey:     "donation-" + d.ID,
	})
	if err != nil {
		m.opts.Metrics.paymentIntent("error")
		m.opts.Logger.Warn("Payment intent creation failed",
			"donation_id", d.ID,
			"amount", d.Amount,
			"currency", d.Currency,
			"error", err,
		)
		if !errors.Is(err, payment.ErrGateway) {
			err = fmt.Errorf("%w: %w", payment.ErrGateway, err)
		}
		return nil, fmt.Errorf("donation %s: %w", d.ID, err)
	}

	result := &PaymentResult{
		DonationID:      d.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}

	// The intent exists at the processor from here on. A failed write is not
	// surfaced: reconciliation backfills the reference from the event metadata.
	if err := m.store.SetPaymentIntent(ctx, d.ID, intent.ID); err != nil {
		m.opts.Metrics.paymentIntent("attach_failed")
		m.opts.Logger.Error("Failed to attach payment intent",
			"donation_id", d.ID,
			"payment_intent_id", intent.ID,
			"error", err,
		)
		return result, nil
	}

	m.opts.Metrics.paymentIntent("created")
	m.opts.Logger.Info("Payment initiated",
		"donation_id", d.ID,
		"payment_intent_id", intent.ID,
		"amount", d.Amount,
		"currency", d.Currency,
	)

	return result, nil
}

// create persists d and, unless it is anonymous, its donor link as one
// transaction.
func (m *Manager) create(ctx context.Context, d *models.Donation, donorID string) error {
	err := m.store.WithTx(ctx, func(q storage.Queries) error {
		if _, err := q.GetOrganization(ctx, d.OrganizationID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: organization %s", ErrNotFound, d.OrganizationID)
			}
			return err
		}

		if !d.IsAnonymous {
			if _, err := q.GetUserByID(ctx, donorID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("%w: donor %s", ErrNotFound, donorID)
				}
				return err
			}
		}

		if err := q.CreateDonation(ctx, d); err != nil {
			return err
		}

		if d.IsAnonymous {
			return nil
		}
		return q.AddDonor(ctx, d.ID, donorID)
	})
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrPersistence) {
			m.opts.Logger.Error("Failed to record donation", "organization_id", d.OrganizationID, "error", err)
		}
		return err
	}

	m.opts.Metrics.donationRecorded(d)
	m.opts.Logger.Info("Donation recorded",
		"donation_id", d.ID,
		"organization_id", d.OrganizationID,
		"amount", d.Amount,
		"currency", d.Currency,
		"frequency", d.Frequency,
		"anonymous", d.IsAnonymous,
	)

	return nil
}

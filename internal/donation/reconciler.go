package donation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/payment"
	"github.com/mmynk/giveback/internal/storage"
)

// Outcome describes what reconciliation did with a verified event. Every
// outcome is acknowledged to the processor.
type Outcome string

const (
	// OutcomeCompleted: the donation moved from pending to completed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAlreadyCompleted: a different event already completed it.
	OutcomeAlreadyCompleted Outcome = "already_completed"
	// OutcomeDuplicate: this exact event was applied before.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored: the event type does not affect donations.
	OutcomeIgnored Outcome = "ignored"
	// OutcomePaymentFailed: the processor reported a failed charge attempt.
	// The donation stays pending; the donor may retry the payment.
	OutcomePaymentFailed Outcome = "payment_failed"
	// OutcomeUncorrelated: the intent carries no donation ID.
	OutcomeUncorrelated Outcome = "uncorrelated"
	// OutcomeNotFound: the donation ID does not exist.
	OutcomeNotFound Outcome = "donation_not_found"
	// OutcomeIntentMismatch: the donation is bound to a different intent.
	OutcomeIntentMismatch Outcome = "intent_mismatch"

	outcomeRejected Outcome = "rejected"
)

// Reconciler applies verified payment events to donations.
type Reconciler struct {
	store         storage.Store
	gateway       payment.Gateway
	webhookSecret string
	opts          Options
}

// NewReconciler creates a Reconciler. An empty webhookSecret is accepted here
// and reported on every call, so a misconfigured deployment fails loudly
// without refusing to start.
func NewReconciler(store storage.Store, gateway payment.Gateway, webhookSecret string, opts Options) *Reconciler {
	return &Reconciler{
		store:         store,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		opts:          opts.withDefaults(),
	}
}

// HandlePaymentEvent verifies a raw processor event and applies it.
//
// It returns ErrWebhookNotConfigured or an error wrapping
// payment.ErrAuthenticity when the event must be rejected, and
// ErrPersistence when it could not be applied and should be redelivered.
// Every other situation, including duplicates and events for unknown
// donations, yields a nil error.
func (r *Reconciler) HandlePaymentEvent(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	if r.webhookSecret == "" {
		r.opts.Logger.Error("Payment event rejected: webhook secret not configured")
		return outcomeRejected, ErrWebhookNotConfigured
	}

	event, err := r.gateway.VerifyAndParseEvent(payload, signatureHeader, r.webhookSecret)
	if err != nil {
		r.opts.Metrics.paymentEvent("", outcomeRejected)
		r.opts.Logger.Warn("Payment event rejected", "error", err)
		if !errors.Is(err, payment.ErrAuthenticity) {
			err = fmt.Errorf("%w: %w", payment.ErrAuthenticity, err)
		}
		return outcomeRejected, err
	}

	outcome, err := r.apply(ctx, event)
	if err != nil {
		r.opts.Logger.Error("Failed to apply payment event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return outcome, err
	}

	r.opts.Metrics.paymentEvent(event.Type, outcome)
	r.logOutcome(event, outcome)

	return outcome, nil
}

func (r *Reconciler) apply(ctx context.Context, event *payment.Event) (Outcome, error) {
	switch event.Type {
	case payment.EventPaymentSucceeded:
	case payment.EventPaymentFailed:
		return OutcomePaymentFailed, nil
	default:
		return OutcomeIgnored, nil
	}

	donationID := event.Metadata[payment.MetadataDonationID]
	if donationID == "" {
		return OutcomeUncorrelated, nil
	}

	var outcome Outcome
	err := r.store.WithTx(ctx, func(q storage.Queries) error {
		if event.ID != "" {
			_, err := q.GetPaymentEvent(ctx, event.ID)
			if err == nil {
				outcome = OutcomeDuplicate
				return nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		d, err := q.GetDonation(ctx, donationID)
		if errors.Is(err, storage.ErrNotFound) {
			outcome = OutcomeNotFound
			return nil
		}
		if err != nil {
			return err
		}

		outcome, err = r.transition(ctx, q, d, event.PaymentIntentID)
		if err != nil {
			return err
		}

		if event.ID == "" {
			return nil
		}
		_, err = q.RecordPaymentEvent(ctx, &models.PaymentEvent{
			ID:              event.ID,
			Type:            event.Type,
			DonationID:      d.ID,
			PaymentIntentID: event.PaymentIntentID,
			Outcome:         string(outcome),
			ReceivedAt:      r.opts.Now().Unix(),
		})
		return err
	})
	if err != nil {
		return "", classify(err)
	}

	return outcome, nil
}

// transition completes d if the event's intent matches the one it is bound to.
// A donation with no intent yet is bound to the event's intent first.
func (r *Reconciler) transition(ctx context.Context, q storage.Queries, d *models.Donation, intentID string) (Outcome, error) {
	switch {
	case intentID == "" || d.PaymentIntentID == intentID:
	case d.PaymentIntentID == "":
		err := q.SetPaymentIntent(ctx, d.ID, intentID)
		if errors.Is(err, storage.ErrConflict) {
			return OutcomeIntentMismatch, nil
		}
		if err != nil {
			return "", err
		}
	default:
		return OutcomeIntentMismatch, nil
	}

	transitioned, err := q.CompleteDonation(ctx, d.ID)
	if err != nil {
		return "", err
	}
	if !transitioned {
		return OutcomeAlreadyCompleted, nil
	}
	return OutcomeCompleted, nil
}

func (r *Reconciler) logOutcome(event *payment.Event, outcome Outcome) {
	attrs := []any{
		"event_id", event.ID,
		"event_type", event.Type,
		"payment_intent_id", event.PaymentIntentID,
		"donation_id", event.Metadata[payment.MetadataDonationID],
		"outcome", outcome,
	}

	switch outcome {
	case OutcomeCompleted:
		r.opts.Logger.Info("Donation completed", attrs...)
	case OutcomeNotFound, OutcomeUncorrelated, OutcomeIntentMismatch, OutcomePaymentFailed:
		r.opts.Logger.Warn("Payment event not applied", attrs...)
	default:
		r.opts.Logger.Debug("Payment event acknowledged", attrs...)
	}
}

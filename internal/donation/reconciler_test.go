package donation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/payment"
)

// initiate starts a card payment and returns the donation ID and intent ID.
func (e *testEnv) initiate(t *testing.T) (string, string) {
	t.Helper()
	result, err := e.manager.InitiatePayment(context.Background(), PaymentRequest{
		DonorID:        e.donor.ID,
		Amount:         25,
		Currency:       "usd",
		OrganizationID: e.org.ID,
		Frequency:      models.FrequencyOneTime,
		PaymentMethod:  models.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("InitiatePayment failed: %v", err)
	}
	return result.DonationID, result.PaymentIntentID
}

func (e *testEnv) deliver(t *testing.T, payload []byte) (Outcome, error) {
	t.Helper()
	return e.reconciler.HandlePaymentEvent(context.Background(), payload, sign(payload, testWebhookSecret))
}

func TestReconciler_CompletesDonation(t *testing.T) {
	env := newTestEnv(t)
	donationID, intentID := env.initiate(t)

	payload := intentEvent("evt_1", payment.EventPaymentSucceeded, intentID, donationID)

	outcome, err := env.deliver(t, payload)
	if err != nil {
		t.Fatalf("HandlePaymentEvent failed: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Errorf("expected %s, got %s", OutcomeCompleted, outcome)
	}

	d := env.donation(t, donationID)
	if d.Status != models.DonationStatusCompleted {
		t.Errorf("Status: expected completed, got %s", d.Status)
	}

	recorded, err := env.store.GetPaymentEvent(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("GetPaymentEvent failed: %v", err)
	}
	if recorded.DonationID != donationID || recorded.Outcome != string(OutcomeCompleted) {
		t.Errorf("unexpected recorded event: %+v", recorded)
	}

	t.Run("replayed event is a duplicate", func(t *testing.T) {
		outcome, err := env.deliver(t, payload)
		if err != nil {
			t.Fatalf("HandlePaymentEvent failed: %v", err)
		}
		if outcome != OutcomeDuplicate {
			t.Errorf("expected %s, got %s", OutcomeDuplicate, outcome)
		}
	})

	t.Run("second event for the same intent", func(t *testing.T) {
		outcome, err := env.deliver(t, intentEvent("evt_2", payment.EventPaymentSucceeded, intentID, donationID))
		if err != nil {
			t.Fatalf("HandlePaymentEvent failed: %v", err)
		}
		if outcome != OutcomeAlreadyCompleted {
			t.Errorf("expected %s, got %s", OutcomeAlreadyCompleted, outcome)
		}
		if d := env.donation(t, donationID); d.Status != models.DonationStatusCompleted {
			t.Errorf("Status: expected completed, got %s", d.Status)
		}
	})

	if n := testutil.ToFloat64(env.metrics.paymentEvents.WithLabelValues(payment.EventPaymentSucceeded, string(OutcomeCompleted))); n != 1 {
		t.Errorf("payment_events_total{succeeded,completed}: expected 1, got %v", n)
	}
}

func TestReconciler_RejectsUnverifiedEvents(t *testing.T) {
	env := newTestEnv(t)
	donationID, intentID := env.initiate(t)
	payload := intentEvent("evt_1", payment.EventPaymentSucceeded, intentID, donationID)

	tests := []struct {
		name   string
		header string
	}{
		{"wrong secret", sign(payload, "whsec_other")},
		{"missing header", ""},
		{"garbage header", "not-a-signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reconciler.HandlePaymentEvent(context.Background(), payload, tt.header)
			if !errors.Is(err, payment.ErrAuthenticity) {
				t.Errorf("expected ErrAuthenticity, got %v", err)
			}
		})
	}

	if d := env.donation(t, donationID); d.Status != models.DonationStatusPending {
		t.Errorf("Status: expected pending, got %s", d.Status)
	}
	if n := testutil.ToFloat64(env.metrics.paymentEvents.WithLabelValues("unverified", string(outcomeRejected))); n != 3 {
		t.Errorf("payment_events_total{unverified,rejected}: expected 3, got %v", n)
	}
}

func TestReconciler_WebhookNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	reconciler := NewReconciler(env.store, env.gateway, "", Options{})

	payload := intentEvent("evt_1", payment.EventPaymentSucceeded, "pi_1", "don_1")
	_, err := reconciler.HandlePaymentEvent(context.Background(), payload, sign(payload, testWebhookSecret))
	if !errors.Is(err, ErrWebhookNotConfigured) {
		t.Errorf("expected ErrWebhookNotConfigured, got %v", err)
	}
}

func TestReconciler_AcknowledgedWithoutChange(t *testing.T) {
	env := newTestEnv(t)
	donationID, intentID := env.initiate(t)

	tests := []struct {
		name    string
		payload []byte
		want    Outcome
	}{
		{
			name:    "unrelated event type",
			payload: []byte(`{"id": "evt_c", "object": "event", "type": "customer.created", "data": {"object": {"id": "cus_1", "object": "customer"}}}`),
			want:    OutcomeIgnored,
		},
		{
			name:    "payment failed",
			payload: intentEvent("evt_f", payment.EventPaymentFailed, intentID, donationID),
			want:    OutcomePaymentFailed,
		},
		{
			name:    "intent without donation metadata",
			payload: intentEvent("evt_u", payment.EventPaymentSucceeded, "pi_foreign", ""),
			want:    OutcomeUncorrelated,
		},
		{
			name:    "unknown donation",
			payload: intentEvent("evt_n", payment.EventPaymentSucceeded, "pi_foreign", "no-such-donation"),
			want:    OutcomeNotFound,
		},
		{
			name:    "intent bound to another donation",
			payload: intentEvent("evt_m", payment.EventPaymentSucceeded, "pi_other", donationID),
			want:    OutcomeIntentMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := env.deliver(t, tt.payload)
			if err != nil {
				t.Fatalf("HandlePaymentEvent failed: %v", err)
			}
			if outcome != tt.want {
				t.Errorf("expected %s, got %s", tt.want, outcome)
			}
		})
	}

	d := env.donation(t, donationID)
	if d.Status != models.DonationStatusPending || d.PaymentIntentID != intentID {
		t.Errorf("expected untouched pending donation bound to %s, got %+v", intentID, d)
	}
}

func TestReconciler_BackfillsMissingIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	d, err := env.manager.RecordDonation(ctx, RecordRequest{
		DonorID:        env.donor.ID,
		Amount:         40,
		Frequency:      models.FrequencyOneTime,
		PaymentMethod:  models.PaymentMethodCreditCard,
		OrganizationID: env.org.ID,
	})
	if err != nil {
		t.Fatalf("RecordDonation failed: %v", err)
	}

	outcome, err := env.deliver(t, intentEvent("evt_1", payment.EventPaymentSucceeded, "pi_late", d.ID))
	if err != nil {
		t.Fatalf("HandlePaymentEvent failed: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Errorf("expected %s, got %s", OutcomeCompleted, outcome)
	}

	got := env.donation(t, d.ID)
	if got.Status != models.DonationStatusCompleted || got.PaymentIntentID != "pi_late" {
		t.Errorf("expected completed donation bound to pi_late, got %+v", got)
	}
}

func TestReconciler_ConcurrentDelivery(t *testing.T) {
	const deliveries = 8

	run := func(t *testing.T, env *testEnv, payloads [][]byte) map[Outcome]int {
		t.Helper()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			outcomes = map[Outcome]int{}
		)
		for _, payload := range payloads {
			wg.Add(1)
			go func(payload []byte) {
				defer wg.Done()
				outcome, err := env.reconciler.HandlePaymentEvent(context.Background(), payload, sign(payload, testWebhookSecret))
				if err != nil {
					t.Errorf("HandlePaymentEvent failed: %v", err)
					return
				}
				mu.Lock()
				outcomes[outcome]++
				mu.Unlock()
			}(payload)
		}
		wg.Wait()
		return outcomes
	}

	t.Run("same event redelivered", func(t *testing.T) {
		env := newTestEnv(t)
		donationID, intentID := env.initiate(t)

		payload := intentEvent("evt_1", payment.EventPaymentSucceeded, intentID, donationID)
		payloads := make([][]byte, deliveries)
		for i := range payloads {
			payloads[i] = payload
		}

		outcomes := run(t, env, payloads)
		if outcomes[OutcomeCompleted] != 1 || outcomes[OutcomeDuplicate] != deliveries-1 {
			t.Errorf("expected 1 completed and %d duplicates, got %v", deliveries-1, outcomes)
		}
	})

	t.Run("distinct events for one intent", func(t *testing.T) {
		env := newTestEnv(t)
		donationID, intentID := env.initiate(t)

		payloads := make([][]byte, deliveries)
		for i := range payloads {
			payloads[i] = intentEvent(fmt.Sprintf("evt_%d", i), payment.EventPaymentSucceeded, intentID, donationID)
		}

		outcomes := run(t, env, payloads)
		if outcomes[OutcomeCompleted] != 1 || outcomes[OutcomeAlreadyCompleted] != deliveries-1 {
			t.Errorf("expected 1 completed and %d already completed, got %v", deliveries-1, outcomes)
		}
	})
}

func TestReconciler_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	donationID, intentID := env.initiate(t)
	env.store.Close()

	_, err := env.deliver(t, intentEvent("evt_1", payment.EventPaymentSucceeded, intentID, donationID))
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

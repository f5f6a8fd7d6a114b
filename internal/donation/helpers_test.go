package donation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/payment"
	"github.com/mmynk/giveback/internal/storage/sqlite"
)

const testWebhookSecret = "whsec_test_secret"

// fakeGateway verifies events with the real Stripe signature scheme and
// answers intent creation locally.
type fakeGateway struct {
	*payment.StripeGateway

	mu       sync.Mutex
	requests []payment.IntentRequest
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		StripeGateway: payment.NewStripeGateway(payment.StripeConfig{SecretKey: "sk_test_123"}),
	}
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}

	id := fmt.Sprintf("pi_%d", len(g.requests))
	return &payment.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *fakeGateway) calls() []payment.IntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.IntentRequest(nil), g.requests...)
}

type testEnv struct {
	store      *sqlite.SQLiteStore
	gateway    *fakeGateway
	metrics    *Metrics
	manager    *Manager
	reconciler *Reconciler
	donor      *models.User
	org        *models.Organization
	now        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()

	owner := models.NewUser("owner@example.org", "Owner", "hash", models.RoleAdmin)
	if err := store.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	donor := models.NewUser("donor@example.org", "Donor", "hash", models.RoleDonor)
	if err := store.CreateUser(ctx, donor); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	org := &models.Organization{Name: "Food Bank", OwnerID: owner.ID}
	if err := store.CreateOrganization(ctx, org); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}

	now := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)
	metrics := NewMetrics(prometheus.NewRegistry())
	opts := Options{
		Metrics: metrics,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return now },
	}

	gateway := newFakeGateway()

	return &testEnv{
		store:      store,
		gateway:    gateway,
		metrics:    metrics,
		manager:    NewManager(store, gateway, opts),
		reconciler: NewReconciler(store, gateway, testWebhookSecret, opts),
		donor:      donor,
		org:        org,
		now:        now,
	}
}

func (e *testEnv) donation(t *testing.T, id string) *models.Donation {
	t.Helper()
	d, err := e.store.GetDonation(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDonation failed: %v", err)
	}
	return d
}

func intentEvent(eventID, eventType, intentID, donationID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2020-08-27",
		"type": %q,
		"data": {"object": {"id": %q, "object": "payment_intent", "metadata": {"donation_id": %q}}}
	}`, eventID, eventType, intentID, donationID))
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/mmynk/giveback/internal/auth"
	"github.com/mmynk/giveback/internal/donation"
	"github.com/mmynk/giveback/internal/payment"
	"github.com/mmynk/giveback/internal/storage/sqlite"
)

const testWebhookSecret = "whsec_test_secret"

// fakeGateway verifies events with the real Stripe signature scheme and
// answers intent creation locally.
type fakeGateway struct {
	*payment.StripeGateway

	mu    sync.Mutex
	calls int
	err   error
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	id := fmt.Sprintf("pi_%d", g.calls)
	return &payment.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *fakeGateway) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

type testServer struct {
	*httptest.Server
	store   *sqlite.SQLiteStore
	gateway *fakeGateway
}

func setupTestServer(t *testing.T, webhookSecret string) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := &fakeGateway{StripeGateway: payment.NewStripeGateway(payment.StripeConfig{SecretKey: "sk_test_123"})}
	opts := donation.Options{Logger: logger}

	mux := NewMux(Dependencies{
		Store:         store,
		Authenticator: auth.NewPasswordAuthenticator(store),
		JWTManager:    auth.NewJWTManager("test-secret", time.Hour),
		Manager:       donation.NewManager(store, gateway, opts),
		Reconciler:    donation.NewReconciler(store, gateway, webhookSecret, opts),
		Logger:        logger,
	})

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{Server: server, store: store, gateway: gateway}
}

// do sends a JSON request and decodes the JSON response into a map.
func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, out
}

// signup registers a user and logs them in, returning the token and user ID.
func (s *testServer) signup(t *testing.T, email, role string) (string, string) {
	t.Helper()

	status, body := s.do(t, http.MethodPost, "/users", "", map[string]any{
		"name": "Test User", "email": email, "password": "password123", "role": role,
	})
	if status != http.StatusCreated {
		t.Fatalf("POST /users: expected 201, got %d: %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/login", "", map[string]any{
		"email": email, "password": "password123",
	})
	if status != http.StatusOK {
		t.Fatalf("POST /login: expected 200, got %d: %v", status, body)
	}

	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func (s *testServer) createOrganization(t *testing.T, token, name string) string {
	t.Helper()

	status, body := s.do(t, http.MethodPost, "/organizations", token, map[string]any{
		"name": name, "description": "Test organization",
	})
	if status != http.StatusCreated {
		t.Fatalf("POST /organizations: expected 201, got %d: %v", status, body)
	}
	return body["organization_id"].(string)
}

func (s *testServer) deliverEvent(t *testing.T, payload []byte, secret string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.URL+"/webhook", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header)

	return s.send(t, req)
}

func succeededEvent(eventID, intentID, donationID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2020-08-27",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": %q, "object": "payment_intent", "metadata": {"donation_id": %q}}}
	}`, eventID, intentID, donationID))
}

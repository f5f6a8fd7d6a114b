package service

import (
	"context"
	"net/http"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/giveback/internal/models"
)

func authed[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestQueryService(t *testing.T) {
	srv := setupTestServer(t, testWebhookSecret)
	ctx := context.Background()
	client := NewQueryClient(http.DefaultClient, srv.URL)

	ownerToken, _ := srv.signup(t, "owner@example.org", models.RoleAdmin)
	orgID := srv.createOrganization(t, ownerToken, "Food Bank")
	donorToken, donorID := srv.signup(t, "donor@example.org", models.RoleDonor)
	strangerToken, _ := srv.signup(t, "stranger@example.org", models.RoleDonor)

	pledge := func(amount float64, currency, frequency string) string {
		status, body := srv.do(t, http.MethodPost, "/donations", donorToken, map[string]any{
			"amount": amount, "currency": currency, "frequency": frequency,
			"payment_method": "paypal", "organization_id": orgID,
		})
		if status != http.StatusCreated {
			t.Fatalf("POST /donations: expected 201, got %d: %v", status, body)
		}
		return body["donation_id"].(string)
	}

	usdID := pledge(12.50, "usd", "monthly")
	pledge(1000, "jpy", "one-time")

	status, body := srv.do(t, http.MethodPost, "/create-payment-intent", donorToken, map[string]any{
		"amount": 30, "currency": "usd", "organization_id": orgID, "frequency": "one-time", "payment_method": "card",
	})
	if status != http.StatusOK {
		t.Fatalf("POST /create-payment-intent: expected 200, got %d: %v", status, body)
	}
	paidID := body["donation_id"].(string)
	d, err := srv.store.GetDonation(ctx, paidID)
	if err != nil {
		t.Fatalf("GetDonation failed: %v", err)
	}
	if status, _ := srv.deliverEvent(t, succeededEvent("evt_1", d.PaymentIntentID, paidID), testWebhookSecret); status != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", status)
	}

	t.Run("donor sees their donation", func(t *testing.T) {
		resp, err := client.GetDonation(ctx, authed(&GetDonationRequest{DonationID: usdID}, donorToken))
		if err != nil {
			t.Fatalf("GetDonation failed: %v", err)
		}
		view := resp.Msg.Donation
		if view.Amount != 1250 || view.AmountDisplay != 12.5 || view.Currency != "usd" {
			t.Errorf("unexpected amount: %+v", view)
		}
		if view.Status != "pending" || view.Frequency != "monthly" {
			t.Errorf("unexpected donation: %+v", view)
		}
		if len(view.Donors) != 1 || view.Donors[0] != donorID {
			t.Errorf("Donors: expected [%s], got %v", donorID, view.Donors)
		}
	})

	t.Run("owner sees it without donor identities", func(t *testing.T) {
		resp, err := client.GetDonation(ctx, authed(&GetDonationRequest{DonationID: usdID}, ownerToken))
		if err != nil {
			t.Fatalf("GetDonation failed: %v", err)
		}
		if len(resp.Msg.Donation.Donors) != 0 {
			t.Errorf("expected no donors, got %v", resp.Msg.Donation.Donors)
		}
	})

	errorTests := []struct {
		name     string
		call     func() error
		wantCode connect.Code
	}{
		{
			name: "stranger cannot see donation",
			call: func() error {
				_, err := client.GetDonation(ctx, authed(&GetDonationRequest{DonationID: usdID}, strangerToken))
				return err
			},
			wantCode: connect.CodeNotFound,
		},
		{
			name: "unknown donation",
			call: func() error {
				_, err := client.GetDonation(ctx, authed(&GetDonationRequest{DonationID: "missing"}, donorToken))
				return err
			},
			wantCode: connect.CodeNotFound,
		},
		{
			name: "missing token",
			call: func() error {
				_, err := client.GetDonation(ctx, authed(&GetDonationRequest{DonationID: usdID}, ""))
				return err
			},
			wantCode: connect.CodeUnauthenticated,
		},
		{
			name: "summary for non-owner",
			call: func() error {
				_, err := client.GetOrganizationSummary(ctx, authed(&GetOrganizationSummaryRequest{OrganizationID: orgID}, donorToken))
				return err
			},
			wantCode: connect.CodePermissionDenied,
		},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if connect.CodeOf(err) != tt.wantCode {
				t.Errorf("expected %v, got %v", tt.wantCode, err)
			}
		})
	}

	t.Run("owner summary", func(t *testing.T) {
		resp, err := client.GetOrganizationSummary(ctx, authed(&GetOrganizationSummaryRequest{OrganizationID: orgID}, ownerToken))
		if err != nil {
			t.Fatalf("GetOrganizationSummary failed: %v", err)
		}

		summary := resp.Msg
		if summary.Count != 3 || summary.CompletedCount != 1 || summary.RecurringCount != 1 {
			t.Errorf("unexpected counts: %+v", summary)
		}

		want := []CurrencyTotal{
			{Currency: "jpy", Completed: 0, Pending: 1000},
			{Currency: "usd", Completed: 3000, Pending: 1250},
		}
		if len(summary.Totals) != len(want) {
			t.Fatalf("Totals: expected %v, got %v", want, summary.Totals)
		}
		for i := range want {
			if summary.Totals[i] != want[i] {
				t.Errorf("Totals[%d]: expected %+v, got %+v", i, want[i], summary.Totals[i])
			}
		}
	})
}

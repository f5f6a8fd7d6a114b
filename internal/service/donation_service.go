package service

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/giveback/internal/donation"
	"github.com/mmynk/giveback/internal/middleware"
	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/payment"
)

// maxWebhookBytes caps processor event payloads.
const maxWebhookBytes = 256 << 10

// DonationService serves the donation and payment endpoints.
type DonationService struct {
	manager    *donation.Manager
	reconciler *donation.Reconciler
	logger     *slog.Logger
}

// NewDonationService creates a DonationService.
func NewDonationService(manager *donation.Manager, reconciler *donation.Reconciler, logger *slog.Logger) *DonationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DonationService{
		manager:    manager,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Register mounts the routes on mux. requireAuth wraps the routes that need a
// signed-in caller; the webhook is authenticated by its signature instead.
func (s *DonationService) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("POST /donations", requireAuth(http.HandlerFunc(s.CreateDonation)))
	mux.Handle("POST /create-payment-intent", requireAuth(http.HandlerFunc(s.CreatePaymentIntent)))
	mux.HandleFunc("POST /webhook", s.Webhook)
}

type createDonationRequest struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Frequency       string  `json:"frequency"`
	PaymentMethod   string  `json:"payment_method"`
	OrganizationID  string  `json:"organization_id"`
	IsAnonymous     bool    `json:"is_anonymous"`
	NextPaymentDate string  `json:"next_payment_date"`
}

type createDonationResponse struct {
	DonationID string `json:"donation_id"`
	Status     string `json:"status"`
}

// CreateDonation records a pledge for the signed-in caller.
func (s *DonationService) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.logger.Debug("Rejected donation request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record := donation.RecordRequest{
		DonorID:        middleware.GetUserID(r.Context()),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Frequency:      models.Frequency(req.Frequency),
		PaymentMethod:  models.PaymentMethod(req.PaymentMethod),
		OrganizationID: req.OrganizationID,
		IsAnonymous:    req.IsAnonymous,
	}
	if req.NextPaymentDate != "" {
		next, err := parseDate(req.NextPaymentDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "invalid next_payment_date: use YYYY-MM-DD or RFC 3339",
				Field: "next_payment_date",
			})
			return
		}
		record.NextPaymentDate = &next
	}

	d, err := s.manager.RecordDonation(r.Context(), record)
	if err != nil {
		writeDonationError(w, err, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusCreated, createDonationResponse{
		DonationID: d.ID,
		Status:     string(d.Status),
	})
}

type createPaymentIntentRequest struct {
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	OrganizationID string  `json:"organization_id"`
	Frequency      string  `json:"frequency"`
	PaymentMethod  string  `json:"payment_method"`
	IsAnonymous    bool    `json:"is_anonymous"`
}

type createPaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	DonationID   string `json:"donation_id"`
}

// CreatePaymentIntent records a pending donation and starts its card payment.
func (s *DonationService) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createPaymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.logger.Debug("Rejected payment intent request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.manager.InitiatePayment(r.Context(), donation.PaymentRequest{
		DonorID:        middleware.GetUserID(r.Context()),
		Amount:         req.Amount,
		Currency:       req.Currency,
		OrganizationID: req.OrganizationID,
		Frequency:      models.Frequency(req.Frequency),
		PaymentMethod:  models.PaymentMethod(req.PaymentMethod),
		IsAnonymous:    req.IsAnonymous,
	})
	if errors.Is(err, payment.ErrGateway) {
		writeError(w, http.StatusBadRequest, "payment processor rejected the request")
		return
	}
	if err != nil {
		writeDonationError(w, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, createPaymentIntentResponse{
		ClientSecret: result.ClientSecret,
		DonationID:   result.DonationID,
	})
}

// Webhook receives payment processor events. Every verified event is
// acknowledged, including ones that change nothing, so the processor stops
// redelivering them.
func (s *DonationService) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read event payload")
		return
	}

	_, err = s.reconciler.HandlePaymentEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, donation.ErrWebhookNotConfigured):
		writeError(w, http.StatusBadRequest, "webhook is not configured")
	case errors.Is(err, payment.ErrAuthenticity):
		writeError(w, http.StatusBadRequest, "invalid signature")
	default:
		writeError(w, http.StatusInternalServerError, "failed to process event")
	}
}

// parseDate accepts a calendar date (YYYY-MM-DD, midnight UTC) or an RFC 3339
// timestamp.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"connectrpc.com/connect"

	"github.com/mmynk/giveback/internal/calculator"
	"github.com/mmynk/giveback/internal/middleware"
	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/storage"
)

const (
	// DonationServiceName is the fully-qualified name of the query service.
	DonationServiceName = "giveback.v1.DonationService"

	GetDonationProcedure            = "/" + DonationServiceName + "/GetDonation"
	GetOrganizationSummaryProcedure = "/" + DonationServiceName + "/GetOrganizationSummary"
)

var (
	errNotVisible = errors.New("donation is not visible to the caller")
	errNotOwner   = errors.New("only the organization owner can view its summary")
)

type GetDonationRequest struct {
	DonationID string `json:"donation_id"`
}

// DonationView is a donation as shown to its donor or its organization's
// owner. Donors lists only the caller, and only when the caller is a donor.
type DonationView struct {
	ID              string   `json:"id"`
	Amount          int64    `json:"amount"`
	AmountDisplay   float64  `json:"amount_display"`
	Currency        string   `json:"currency"`
	Frequency       string   `json:"frequency"`
	PaymentMethod   string   `json:"payment_method"`
	Status          string   `json:"status"`
	IsAnonymous     bool     `json:"is_anonymous"`
	OrganizationID  string   `json:"organization_id"`
	NextPaymentDate int64    `json:"next_payment_date,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	Donors          []string `json:"donors"`
}

type GetDonationResponse struct {
	Donation DonationView `json:"donation"`
}

type GetOrganizationSummaryRequest struct {
	OrganizationID string `json:"organization_id"`
}

type CurrencyTotal struct {
	Currency  string `json:"currency"`
	Completed int64  `json:"completed"`
	Pending   int64  `json:"pending"`
}

type GetOrganizationSummaryResponse struct {
	OrganizationID string          `json:"organization_id"`
	Count          int             `json:"count"`
	CompletedCount int             `json:"completed_count"`
	RecurringCount int             `json:"recurring_count"`
	Totals         []CurrencyTotal `json:"totals"`
}

// QueryService implements the read-only DonationService RPCs.
type QueryService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewQueryService creates a QueryService with the given storage backend.
func NewQueryService(store storage.Store, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{store: store, logger: logger}
}

// NewQueryServiceHandler builds the Connect handler for svc. It returns the
// path prefix to mount it on.
func NewQueryServiceHandler(svc *QueryService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, connect.WithCodec(jsonCodec{}))

	mux := http.NewServeMux()
	mux.Handle(GetDonationProcedure, connect.NewUnaryHandler(GetDonationProcedure, svc.GetDonation, opts...))
	mux.Handle(GetOrganizationSummaryProcedure, connect.NewUnaryHandler(GetOrganizationSummaryProcedure, svc.GetOrganizationSummary, opts...))

	return "/" + DonationServiceName + "/", mux
}

// GetDonation returns one donation. Only its donors and the owner of its
// organization may see it; everyone else gets NotFound.
func (s *QueryService) GetDonation(ctx context.Context, req *connect.Request[GetDonationRequest]) (*connect.Response[GetDonationResponse], error) {
	callerID := middleware.GetUserID(ctx)
	if req.Msg.DonationID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("donation_id is required"))
	}

	d, err := s.store.GetDonation(ctx, req.Msg.DonationID)
	if err != nil {
		return nil, s.storageError("GetDonation", err)
	}

	donors, err := s.store.ListDonors(ctx, d.ID)
	if err != nil {
		return nil, s.storageError("GetDonation", err)
	}
	isDonor := slices.Contains(donors, callerID)

	if !isDonor {
		org, err := s.store.GetOrganization(ctx, d.OrganizationID)
		if err != nil {
			return nil, s.storageError("GetDonation", err)
		}
		if org.OwnerID != callerID {
			return nil, connect.NewError(connect.CodeNotFound, errNotVisible)
		}
	}

	view := DonationView{
		ID:              d.ID,
		Amount:          d.Amount,
		AmountDisplay:   calculator.ToMajorUnits(d.Amount, d.Currency),
		Currency:        d.Currency,
		Frequency:       string(d.Frequency),
		PaymentMethod:   string(d.PaymentMethod),
		Status:          string(d.Status),
		IsAnonymous:     d.IsAnonymous,
		OrganizationID:  d.OrganizationID,
		NextPaymentDate: d.NextPaymentDate,
		CreatedAt:       d.CreatedAt,
		Donors:          []string{},
	}
	if isDonor {
		view.Donors = []string{callerID}
	}

	return connect.NewResponse(&GetDonationResponse{Donation: view}), nil
}

// GetOrganizationSummary returns donation counts and per-currency totals for
// an organization the caller owns.
func (s *QueryService) GetOrganizationSummary(ctx context.Context, req *connect.Request[GetOrganizationSummaryRequest]) (*connect.Response[GetOrganizationSummaryResponse], error) {
	org, err := s.store.GetOrganization(ctx, req.Msg.OrganizationID)
	if err != nil {
		return nil, s.storageError("GetOrganizationSummary", err)
	}
	if org.OwnerID != middleware.GetUserID(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotOwner)
	}

	donations, err := s.store.ListDonationsByOrganization(ctx, org.ID)
	if err != nil {
		return nil, s.storageError("GetOrganizationSummary", err)
	}

	input := make([]calculator.DonationForSummary, len(donations))
	for i, d := range donations {
		input[i] = calculator.DonationForSummary{
			Amount:    d.Amount,
			Currency:  d.Currency,
			Completed: d.Status == models.DonationStatusCompleted,
			Recurring: d.Frequency.Recurring(),
		}
	}
	summary := calculator.SummarizeDonations(input)

	totals := make([]CurrencyTotal, len(summary.Totals))
	for i, t := range summary.Totals {
		totals[i] = CurrencyTotal{Currency: t.Currency, Completed: t.Completed, Pending: t.Pending}
	}

	return connect.NewResponse(&GetOrganizationSummaryResponse{
		OrganizationID: org.ID,
		Count:          summary.Count,
		CompletedCount: summary.CompletedCount,
		RecurringCount: summary.RecurringCount,
		Totals:         totals,
	}), nil
}

func (s *QueryService) storageError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	s.logger.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, errors.New("storage failure"))
}

// QueryClient calls a DonationService over Connect.
type QueryClient struct {
	getDonation            *connect.Client[GetDonationRequest, GetDonationResponse]
	getOrganizationSummary *connect.Client[GetOrganizationSummaryRequest, GetOrganizationSummaryResponse]
}

// NewQueryClient creates a client for the service at baseURL.
func NewQueryClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *QueryClient {
	opts = append(opts, connect.WithCodec(jsonCodec{}))
	return &QueryClient{
		getDonation:            connect.NewClient[GetDonationRequest, GetDonationResponse](httpClient, baseURL+GetDonationProcedure, opts...),
		getOrganizationSummary: connect.NewClient[GetOrganizationSummaryRequest, GetOrganizationSummaryResponse](httpClient, baseURL+GetOrganizationSummaryProcedure, opts...),
	}
}

func (c *QueryClient) GetDonation(ctx context.Context, req *connect.Request[GetDonationRequest]) (*connect.Response[GetDonationResponse], error) {
	return c.getDonation.CallUnary(ctx, req)
}

func (c *QueryClient) GetOrganizationSummary(ctx context.Context, req *connect.Request[GetOrganizationSummaryRequest]) (*connect.Response[GetOrganizationSummaryResponse], error) {
	return c.getOrganizationSummary.CallUnary(ctx, req)
}

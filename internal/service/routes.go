package service

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/giveback/internal/auth"
	"github.com/mmynk/giveback/internal/donation"
	"github.com/mmynk/giveback/internal/middleware"
	"github.com/mmynk/giveback/internal/storage"
)

// Dependencies are the components the HTTP surface is built from.
type Dependencies struct {
	Store         storage.Store
	Authenticator auth.Authenticator
	JWTManager    *auth.JWTManager
	Manager       *donation.Manager
	Reconciler    *donation.Reconciler
	Logger        *slog.Logger
}

// NewMux registers every route: the JSON endpoints, the webhook, the Connect
// query service, and /health.
func NewMux(deps Dependencies) *http.ServeMux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	requireAuth := middleware.RequireAuthHandler(deps.JWTManager)

	mux := http.NewServeMux()

	NewAuthService(deps.Authenticator, deps.JWTManager, logger).Register(mux)
	NewOrganizationService(deps.Store, logger).Register(mux, requireAuth)
	NewDonationService(deps.Manager, deps.Reconciler, logger).Register(mux, requireAuth)

	queryPath, queryHandler := NewQueryServiceHandler(
		NewQueryService(deps.Store, logger),
		connect.WithInterceptors(
			middleware.LoggingInterceptor(logger),
			middleware.RequireAuth(deps.JWTManager),
		),
	)
	mux.Handle(queryPath, queryHandler)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/giveback/internal/auth"
	"github.com/mmynk/giveback/internal/config"
	"github.com/mmynk/giveback/internal/donation"
	"github.com/mmynk/giveback/internal/middleware"
	"github.com/mmynk/giveback/internal/payment"
	"github.com/mmynk/giveback/internal/service"
	"github.com/mmynk/giveback/internal/storage/sqlite"
	"github.com/mmynk/giveback/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is not set; payment intents will fail")
	}
	if cfg.StripeWebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET is not set; webhook deliveries will be rejected")
	}

	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		APIURL:            cfg.StripeAPIURL,
		MaxNetworkRetries: 2,
		HTTPClient:        &http.Client{Timeout: cfg.PaymentGatewayTimeout},
		Logger:            logger,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := donation.Options{
		DefaultCurrency: cfg.DefaultCurrency,
		GatewayTimeout:  cfg.PaymentGatewayTimeout,
		Metrics:         donation.NewMetrics(registry),
		Logger:          logger,
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecretKey, cfg.JWTTokenTTL)

	mux := service.NewMux(service.Dependencies{
		Store:         store,
		Authenticator: auth.NewPasswordAuthenticator(store),
		JWTManager:    jwtManager,
		Manager:       donation.NewManager(store, gateway, opts),
		Reconciler:    donation.NewReconciler(store, gateway, cfg.StripeWebhookSecret, opts),
		Logger:        logger,
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	handler := middleware.Logging(logger)(middleware.CORS(cfg.CORSAllowedOrigin)(mux))

	// Wrap with h2c for HTTP/2 without TLS (Connect clients use it)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

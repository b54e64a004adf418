// services/api-gateway/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/fine-payment-bridge/internal/checkout"
	"github.com/example/fine-payment-bridge/internal/config"
	"github.com/example/fine-payment-bridge/internal/fines"
	"github.com/example/fine-payment-bridge/internal/fx"
	"github.com/example/fine-payment-bridge/internal/payments"
	"github.com/example/fine-payment-bridge/internal/settlement"
	"github.com/example/fine-payment-bridge/services/api-gateway/handlers"
	"github.com/example/fine-payment-bridge/services/api-gateway/queue"
)

const serviceName = "api-gateway"

func main() {
	if err := run(); err != nil {
		slog.Error("api-gateway stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", serviceName)
	slog.SetDefault(logger)

	fineClient := fines.NewClient(cfg.FineBackendURL, cfg.UpstreamTimeout)
	rates := fx.NewFastForex(cfg.FastForexURL, cfg.FastForexAPIKey, cfg.UpstreamTimeout)
	sessions := checkout.NewStripe(cfg.StripeSecretKey, checkout.RedirectURLs{
		Success: cfg.SuccessURL,
		Cancel:  cfg.CancelURL,
	}, cfg.UpstreamTimeout)

	var audit settlement.AuditPublisher
	if len(cfg.KafkaBrokers) > 0 {
		bus := queue.New(cfg.KafkaBrokers, cfg.SettlementTopic)
		defer func() {
			if err := bus.Close(); err != nil {
				logger.Error("close settlement bus", "err", err)
			}
		}()
		audit = bus
		logger.Info("settlement audit enabled", "topic", cfg.SettlementTopic, "brokers", cfg.KafkaBrokers)
	}

	reconciler := settlement.NewReconciler(fineClient, audit, cfg.UpstreamTimeout, logger)
	// runs before the bus is closed
	defer reconciler.Wait()

	router := handlers.NewRouter(handlers.Deps{
		Initiator:  payments.NewInitiator(fineClient, rates, sessions, cfg.UpstreamTimeout, logger),
		Verifier:   settlement.NewVerifier(cfg.StripeWebhookSecret, cfg.WebhookTolerance),
		Reconciler: reconciler,
		Log:        logger,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()

		logger.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(sctx); err != nil {
			logger.Error("http server shutdown", "err", err)
		}
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-drained
		return err
	}
	<-drained
	return nil
}

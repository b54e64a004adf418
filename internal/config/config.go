package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	WebhookTolerance    time.Duration
	SuccessURL          string
	CancelURL           string

	// Upstreams
	FineBackendURL  string
	FastForexURL    string
	FastForexAPIKey string
	UpstreamTimeout time.Duration

	// Settlement audit (disabled when no brokers are set)
	KafkaBrokers    []string
	SettlementTopic string

	LogLevel slog.Level
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:            Env("HTTP_ADDR", ":3001"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:          Env("CHECKOUT_SUCCESS_URL", "https://tms-gamma-brown.vercel.app/#/payment-success"),
		CancelURL:           Env("CHECKOUT_CANCEL_URL", "https://tms-gamma-brown.vercel.app/#/payment-cancelled"),
		FineBackendURL:      Env("FINE_BACKEND_URL", "https://tms-server-rosy.vercel.app/"),
		FastForexURL:        Env("FASTFOREX_URL", "https://api.fastforex.io"),
		FastForexAPIKey:     os.Getenv("FASTFOREX_API_KEY"),
		SettlementTopic:     Env("KAFKA_SETTLEMENT_TOPIC", "fines.settlement"),
	}

	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.FastForexAPIKey == "" {
		return nil, fmt.Errorf("FASTFOREX_API_KEY is required")
	}

	var err error
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.WebhookTolerance, err = getDuration("WEBHOOK_TOLERANCE", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	// the webhook ack waits on one upstream write
	if cfg.UpstreamTimeout >= cfg.HTTPWriteTimeout {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT (%s) must be shorter than HTTP_WRITE_TIMEOUT (%s)", cfg.UpstreamTimeout, cfg.HTTPWriteTimeout)
	}

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(Env("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// Env returns the variable's value, or defaultValue when it is unset or empty.
func Env(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

// fine-payment-bridge/services/fx-sandbox/main.go
//
// fx-sandbox answers FastForex-style /fetch-one lookups with fixed rates so the gateway can run
// locally without a provider key. Point FASTFOREX_URL at it.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/example/fine-payment-bridge/internal/config"
	m "github.com/example/fine-payment-bridge/pkg/metrics"
)

const serviceName = "fx-sandbox"

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", serviceName)

	rates, err := parseRates(config.Env("SANDBOX_RATES", "LKR/USD=0.0031"))
	if err != nil {
		logger.Error("parse SANDBOX_RATES", "err", err)
		os.Exit(1)
	}

	addr := config.Env("HTTP_ADDR", ":8082")
	logger.Info("listening", "addr", addr, "pairs", len(rates))
	if err := http.ListenAndServe(addr, newRouter(rates)); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newRouter(rates map[string]decimal.Decimal) *mux.Router {
	r := mux.NewRouter()
	r.Use(m.Middleware(serviceName))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "service": serviceName})
	}).Methods(http.MethodGet)

	r.HandleFunc("/fetch-one", fetchOne(rates)).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())
	return r
}

// fetchOne mirrors the provider's response shape, including its error body for unknown pairs.
func fetchOne(rates map[string]decimal.Decimal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		from := strings.ToUpper(q.Get("from"))
		to := strings.ToUpper(q.Get("to"))

		if q.Get("api_key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "Missing API key"})
			return
		}
		rate, ok := rates[from+"/"+to]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "Unsupported currency pair " + from + "/" + to})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"base":    from,
			"result":  map[string]decimal.Decimal{to: rate},
			"updated": time.Now().UTC().Format("2006-01-02 15:04:05"),
			"ms":      1,
		})
	}
}

// parseRates reads "LKR/USD=0.0031,USD/LKR=322.5".
func parseRates(raw string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, &rateEntryError{part}
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !rate.IsPositive() {
			return nil, &rateEntryError{part}
		}
		out[strings.ToUpper(strings.TrimSpace(pair))] = rate
	}
	return out, nil
}

type rateEntryError struct{ part string }

func (e *rateEntryError) Error() string { return "invalid rate entry " + e.part }

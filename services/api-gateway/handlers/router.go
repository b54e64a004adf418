// services/api-gateway/handlers/router.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	m "github.com/example/fine-payment-bridge/pkg/metrics"
)

const (
	serviceName = "api-gateway"

	RequestIDHeader = "X-Request-ID"

	WebhookPath  = "/webhook"
	CheckoutPath = "/create-checkout-session"

	maxWebhookBytes = 64 << 10
	maxJSONBytes    = 1 << 20
)

type Deps struct {
	Initiator  Initiator
	Verifier   Verifier
	Reconciler Reconciler
	Log        *slog.Logger
}

// NewRouter wires the public surface. Body handling is decided by bodyPolicy before any
// route logic runs.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(requestID, m.Middleware(serviceName), bodyPolicy)

	// metrics & health
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": serviceName,
			"ts":      time.Now().UTC(),
		})
	}).Methods(http.MethodGet)

	r.HandleFunc(WebhookPath, WebhookHandler(d.Verifier, d.Reconciler, d.Log)).Methods(http.MethodPost)
	r.HandleFunc(CheckoutPath, CheckoutHandler(d.Initiator, d.Log)).Methods(http.MethodPost)

	return cors.AllowAll().Handler(r)
}

// bodyPolicy: the webhook keeps its raw bytes (size-capped only), every other request with a
// body must be valid JSON before the handler sees it. An empty body reads as {}.
func bodyPolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == WebhookPath {
			r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
			next.ServeHTTP(w, r)
			return
		}
		if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorOut{Error: msgBadJSON})
			return
		}
		if len(bytes.TrimSpace(data)) == 0 {
			data = []byte("{}")
		}
		if !json.Valid(data) {
			writeJSON(w, http.StatusBadRequest, ErrorOut{Error: msgBadJSON})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(data))
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

// requestID keeps the caller's X-Request-ID or mints one, echoes it back and carries it on the
// request context for logging.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	if id, ok := r.Context().Value(ctxKey{}).(string); ok {
		return log.With("request_id", id)
	}
	return log
}

// services/api-gateway/handlers/checkout.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/fine-payment-bridge/internal/payments"
	perr "github.com/example/fine-payment-bridge/pkg/errors"
	m "github.com/example/fine-payment-bridge/pkg/metrics"
)

type Initiator interface {
	Initiate(ctx context.Context, civilNIC, fineID string) (*payments.Result, error)
}

func CheckoutHandler(in Initiator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() { m.ObserveDuration(serviceName, "CHECKOUT_REQUEST", time.Since(start).Seconds()) }()

		var body CheckoutIn
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorOut{Error: msgBadJSON})
			return
		}
		if body.CivilNIC == "" || body.FineID == "" {
			writeJSON(w, http.StatusBadRequest, ErrorOut{Error: msgMissingFields})
			return
		}

		log := requestLogger(log, r)
		res, err := in.Initiate(r.Context(), body.CivilNIC, body.FineID)
		if err != nil {
			status := perr.HTTPStatus(err)
			switch status {
			case http.StatusBadRequest:
				writeJSON(w, status, ErrorOut{Error: msgMissingFields})
			case http.StatusForbidden:
				writeJSON(w, status, ErrorOut{Error: msgForbidden})
			default:
				log.Error("error creating checkout session", "fine_id", body.FineID, "code", perr.CodeOf(err), "err", err)
				writeJSON(w, http.StatusInternalServerError, ErrorOut{Error: msgSessionFailed})
			}
			return
		}

		writeJSON(w, http.StatusOK, CheckoutOut{Message: msgSessionCreated, CheckoutURL: res.CheckoutURL})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

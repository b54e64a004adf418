// services/api-gateway/handlers/webhook.go
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/example/fine-payment-bridge/internal/settlement"
	m "github.com/example/fine-payment-bridge/pkg/metrics"
)

const SignatureHeader = "Stripe-Signature"

type Verifier interface {
	Verify(payload []byte, sigHeader string) (settlement.Event, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, ev settlement.Event) settlement.Outcome
}

// WebhookHandler acknowledges every authentic delivery with 200, whatever the reconciliation
// outcome, so Stripe's redelivery only reacts to signature failures.
func WebhookHandler(v Verifier, rc Reconciler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := requestLogger(log, r)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("webhook: error reading request body", "err", err)
			http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
			return
		}

		ev, err := v.Verify(payload, r.Header.Get(SignatureHeader))
		if err != nil {
			m.IncRequest(serviceName, "FAILED", "WEBHOOK_VERIFY")
			log.Warn("webhook signature verification failed", "err", err)
			http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
			return
		}
		m.IncRequest(serviceName, "SUCCESS", "WEBHOOK_VERIFY")

		// the write runs to completion even if Stripe hangs up
		rc.Reconcile(context.WithoutCancel(r.Context()), ev)

		writeJSON(w, http.StatusOK, WebhookAck{Received: true})
	}
}

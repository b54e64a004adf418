// Package settlement authenticates Stripe webhook deliveries and marks the matching fine paid.
package settlement

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/example/fine-payment-bridge/internal/checkout"
	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

// EventCheckoutCompleted is the only event type with a side effect.
const EventCheckoutCompleted = "checkout.session.completed"

// Event is a verified delivery. Session fields are only set for checkout events.
type Event struct {
	ID        string
	Type      string
	SessionID string
	FineID    string
	CivilNIC  string
}

type sessionObject struct {
	ID       string            `json:"id"`
	Object   string            `json:"object"`
	Metadata map[string]string `json:"metadata"`
}

type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify checks the Stripe-Signature header against the exact bytes received. payload must
// not be re-encoded before this call.
func (v *Verifier) Verify(payload []byte, sigHeader string) (Event, error) {
	if sigHeader == "" {
		return Event{}, perr.New(perr.CodeSignature, "missing Stripe-Signature header")
	}

	ev, err := webhook.ConstructEventWithTolerance(payload, sigHeader, v.secret, v.tolerance)
	if err != nil {
		return Event{}, perr.Wrap(perr.CodeSignature, "signature verification failed", err)
	}
	if ev.Type == "" {
		return Event{}, perr.New(perr.CodeSignature, "event has no type")
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return Event{}, perr.New(perr.CodeSignature, "checkout event has no data object")
	}

	var sess sessionObject
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return Event{}, perr.Wrap(perr.CodeSignature, "malformed checkout session object", err)
	}
	out.SessionID = sess.ID
	out.FineID = sess.Metadata[checkout.MetadataFineID]
	out.CivilNIC = sess.Metadata[checkout.MetadataCivilNIC]
	return out, nil
}

// services/api-gateway/handlers/types.go
package handlers

type CheckoutIn struct {
	CivilNIC string `json:"civilNIC"`
	FineID   string `json:"fineId"`
}

type CheckoutOut struct {
	Message     string `json:"message"`
	CheckoutURL string `json:"checkoutUrl"`
}

type ErrorOut struct {
	Error string `json:"error"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}

// Caller-facing messages. Upstream detail only goes to the log.
const (
	msgSessionCreated = "Checkout session created"
	msgMissingFields  = "Missing civilNIC or fineId"
	msgForbidden      = "Not authorized to pay this fine"
	msgSessionFailed  = "Checkout session failed"
	msgBadJSON        = "Invalid JSON body"
)

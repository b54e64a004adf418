// Package checkout creates hosted Stripe Checkout sessions for fines.
package checkout

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

const (
	ProductName = "Traffic Fine Payment"

	MetadataFineID   = "fineId"
	MetadataCivilNIC = "civilNIC"
)

var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("fine-payment-bridge/checkout-session"))

// Request is everything needed to open one checkout session for one fine.
type Request struct {
	FineID      string
	CivilNIC    string
	AmountMinor int64
	Currency    string
}

// IdempotencyKey is stable for the same fine, owner and amount, so a retried initiation
// returns the session Stripe already created instead of opening a second one.
func (r Request) IdempotencyKey() string {
	name := fmt.Sprintf("%s|%s|%d|%s", r.FineID, r.CivilNIC, r.AmountMinor, strings.ToLower(r.Currency))
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

type Session struct {
	ID  string
	URL string
}

// RedirectURLs are the fixed frontend targets after payment.
type RedirectURLs struct {
	Success string
	Cancel  string
}

// Stripe creates sessions through the Stripe API.
type Stripe struct {
	api       *client.API
	redirects RedirectURLs
}

func NewStripe(secretKey string, redirects RedirectURLs, timeout time.Duration) *Stripe {
	return newStripe(secretKey, redirects, stripe.NewBackends(&http.Client{Timeout: timeout}))
}

func newStripe(secretKey string, redirects RedirectURLs, backends *stripe.Backends) *Stripe {
	return &Stripe{
		api:       client.New(secretKey, backends),
		redirects: redirects,
	}
}

func (s *Stripe) CreateSession(ctx context.Context, req Request) (*Session, error) {
	params := BuildParams(req, s.redirects)
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, perr.Wrap(perr.CodeCheckout, "create checkout session", err)
	}
	if sess.URL == "" {
		return nil, perr.New(perr.CodeCheckout, "checkout session "+sess.ID+" has no url")
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// BuildParams renders a single-line-item card payment carrying the fine's identity as metadata.
func BuildParams(req Request, redirects RedirectURLs) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(ProductName),
						Description: stripe.String("Fine ID: " + req.FineID),
					},
					UnitAmount: stripe.Int64(req.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(redirects.Success),
		CancelURL:  stripe.String(redirects.Cancel),
	}
	params.AddMetadata(MetadataFineID, req.FineID)
	params.AddMetadata(MetadataCivilNIC, req.CivilNIC)
	params.SetIdempotencyKey(req.IdempotencyKey())
	return params
}

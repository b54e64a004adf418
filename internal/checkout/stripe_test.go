package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v72"

	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

func TestBuildParams(t *testing.T) {
	req := Request{FineID: "F1", CivilNIC: "199012345678", AmountMinor: 1550, Currency: "USD"}
	redirects := RedirectURLs{Success: "https://app/#/payment-success", Cancel: "https://app/#/payment-cancelled"}

	p := BuildParams(req, redirects)

	assert.Equal(t, []*string{stripe.String("card")}, p.PaymentMethodTypes)
	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, redirects.Success, *p.SuccessURL)
	assert.Equal(t, redirects.Cancel, *p.CancelURL)
	assert.Equal(t, map[string]string{"fineId": "F1", "civilNIC": "199012345678"}, p.Metadata)
	require.NotNil(t, p.IdempotencyKey)
	assert.Equal(t, req.IdempotencyKey(), *p.IdempotencyKey)

	require.Len(t, p.LineItems, 1)
	item := p.LineItems[0]
	assert.Equal(t, int64(1), *item.Quantity)
	assert.Equal(t, "usd", *item.PriceData.Currency)
	assert.Equal(t, int64(1550), *item.PriceData.UnitAmount)
	assert.Equal(t, "Traffic Fine Payment", *item.PriceData.ProductData.Name)
	assert.Equal(t, "Fine ID: F1", *item.PriceData.ProductData.Description)
}

func TestIdempotencyKey(t *testing.T) {
	a := Request{FineID: "F1", CivilNIC: "199012345678", AmountMinor: 1550, Currency: "usd"}

	assert.Equal(t, a.IdempotencyKey(), a.IdempotencyKey())
	assert.Equal(t, a.IdempotencyKey(), Request{FineID: "F1", CivilNIC: "199012345678", AmountMinor: 1550, Currency: "USD"}.IdempotencyKey())

	b := a
	b.AmountMinor = 1551
	assert.NotEqual(t, a.IdempotencyKey(), b.IdempotencyKey())

	c := a
	c.FineID = "F2"
	assert.NotEqual(t, a.IdempotencyKey(), c.IdempotencyKey())
}

type stripeCall struct {
	path   string
	auth   string
	idem   string
	form   url.Values
	method string
}

// stripeStub answers POST /v1/checkout/sessions with status and body, recording each call.
func stripeStub(t *testing.T, status int, body string) (*Stripe, *[]stripeCall) {
	t.Helper()
	var calls []stripeCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		calls = append(calls, stripeCall{
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			idem:   r.Header.Get("Idempotency-Key"),
			form:   r.PostForm,
			method: r.Method,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	backends := &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	redirects := RedirectURLs{Success: "https://app/#/payment-success", Cancel: "https://app/#/payment-cancelled"}
	return newStripe("sk_test_123", redirects, backends), &calls
}

func TestCreateSession(t *testing.T) {
	s, calls := stripeStub(t, http.StatusOK,
		`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	req := Request{FineID: "F1", CivilNIC: "199012345678", AmountMinor: 1550, Currency: "USD"}

	sess, err := s.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, sess)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/v1/checkout/sessions", call.path)
	assert.Equal(t, "Bearer sk_test_123", call.auth)
	assert.Equal(t, req.IdempotencyKey(), call.idem)

	assert.Equal(t, "payment", call.form.Get("mode"))
	assert.Equal(t, "card", call.form.Get("payment_method_types[0]"))
	assert.Equal(t, "1550", call.form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "usd", call.form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "1", call.form.Get("line_items[0][quantity]"))
	assert.Equal(t, "Traffic Fine Payment", call.form.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "Fine ID: F1", call.form.Get("line_items[0][price_data][product_data][description]"))
	assert.Equal(t, "F1", call.form.Get("metadata[fineId]"))
	assert.Equal(t, "199012345678", call.form.Get("metadata[civilNIC]"))
	assert.Equal(t, "https://app/#/payment-success", call.form.Get("success_url"))
	assert.Equal(t, "https://app/#/payment-cancelled", call.form.Get("cancel_url"))
}

func TestCreateSessionSameRequestSameKey(t *testing.T) {
	s, calls := stripeStub(t, http.StatusOK,
		`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	req := Request{FineID: "F1", CivilNIC: "199012345678", AmountMinor: 1550, Currency: "USD"}

	_, err := s.CreateSession(context.Background(), req)
	require.NoError(t, err)
	_, err = s.CreateSession(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, (*calls)[0].idem, (*calls)[1].idem)
}

func TestCreateSessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"processor rejects", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"Invalid currency: xyz"}}`},
		{"processor down", http.StatusInternalServerError, `{"error":{"type":"api_error","message":"boom"}}`},
		{"session without url", http.StatusOK, `{"id":"cs_test_2","object":"checkout.session"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, calls := stripeStub(t, tt.status, tt.body)

			sess, err := s.CreateSession(context.Background(), Request{FineID: "F1", CivilNIC: "n", AmountMinor: 100, Currency: "USD"})
			require.Error(t, err)
			assert.Nil(t, sess)
			assert.Equal(t, perr.CodeCheckout, perr.CodeOf(err))
			assert.Len(t, *calls, 1, "no retry")
		})
	}
}

package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

func TestFastForexRate(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fetch-one", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{"from": q.Get("from"), "to": q.Get("to"), "api_key": q.Get("api_key")}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"LKR","result":{"USD":0.0031},"updated":"2024-01-01 00:00:00","ms":3}`))
	}))
	defer srv.Close()

	ff := NewFastForex(srv.URL+"/", "secret-key", time.Second)
	rate, err := ff.Rate(context.Background(), LKR, USD)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("0.0031").Equal(rate))
	assert.Equal(t, map[string]string{"from": "LKR", "to": "USD", "api_key": "secret-key"}, gotQuery)
}

func TestFastForexRateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"provider error field", http.StatusOK, `{"error":"Invalid API key"}`},
		{"malformed json", http.StatusOK, `{"result":`},
		{"missing currency", http.StatusOK, `{"result":{"EUR":0.0028}}`},
		{"zero rate", http.StatusOK, `{"result":{"USD":0}}`},
		{"negative rate", http.StatusOK, `{"result":{"USD":-0.0031}}`},
		{"non numeric rate", http.StatusOK, `{"result":{"USD":"NaN"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewFastForex(srv.URL, "k", time.Second).Rate(context.Background(), LKR, USD)
			require.Error(t, err)
			assert.Equal(t, perr.CodeConversion, perr.CodeOf(err))
		})
	}
}

func TestFastForexUnreachableHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewFastForex(url, "very-secret", time.Second).Rate(context.Background(), LKR, USD)
	require.Error(t, err)
	assert.Equal(t, perr.CodeConversion, perr.CodeOf(err))
	assert.NotContains(t, err.Error(), "very-secret")
}

package fines

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

func newBackend(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestGetFine(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/policeIssueFine/F1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"_id":"F1","civilNIC":"199012345678","fineManagementId":"FM9","isPaid":false}}`))
	})

	fine, err := c.GetFine(context.Background(), "F1")
	require.NoError(t, err)
	assert.Equal(t, &Fine{FineID: "F1", CivilNIC: "199012345678", FineManagementID: "FM9"}, fine)
}

func TestGetFineEscapesPath(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/policeIssueFine/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"data":{"civilNIC":"x","fineManagementId":"y"}}`))
	})

	_, err := c.GetFine(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestGetFineFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"message":"not found"}`},
		{"server error", http.StatusInternalServerError, ``},
		{"no data", http.StatusOK, `{"message":"ok"}`},
		{"malformed", http.StatusOK, `{"data":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetFine(context.Background(), "F1")
			require.Error(t, err)
			assert.Equal(t, perr.CodeUpstreamLookup, perr.CodeOf(err))
		})
	}
}

func TestGetFineAmount(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"number", `{"data":{"fine":5000}}`, "5000"},
		{"fractional", `{"data":{"fine":1234.56}}`, "1234.56"},
		{"numeric string", `{"data":{"fine":" 2500.50 "}}`, "2500.5"},
		{"zero", `{"data":{"fine":0}}`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/fine/FM9", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := c.GetFineAmount(context.Background(), "FM9")
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestGetFineAmountInvalid(t *testing.T) {
	for _, body := range []string{
		`{"data":{}}`,
		`{"data":{"fine":null}}`,
		`{"data":{"fine":"abc"}}`,
		`{"data":{"fine":true}}`,
		`{"data":null}`,
	} {
		c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := c.GetFineAmount(context.Background(), "FM9")
		require.Error(t, err, body)
		assert.Equal(t, perr.CodeInvalidAmount, perr.CodeOf(err), body)
	}
}

func TestGetFineAmountUpstreamDown(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.GetFineAmount(context.Background(), "FM9")
	assert.Equal(t, perr.CodeUpstreamLookup, perr.CodeOf(err))
}

func TestMarkPaid(t *testing.T) {
	var calls int
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/policeIssueFine/F1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, map[string]any{"isPaid": true}, body)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.MarkPaid(context.Background(), "F1"))
	assert.Equal(t, 1, calls)
}

func TestMarkPaidFailure(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	err := c.MarkPaid(context.Background(), "F1")
	require.Error(t, err)
	assert.Equal(t, perr.CodeReconcile, perr.CodeOf(err))
	assert.Contains(t, err.Error(), "503")
}

// Package fx looks up conversion rates from a FastForex-compatible provider.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fine-payment-bridge/internal/money"
	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

// Fixed pair for this deployment.
const (
	LKR = "LKR"
	USD = "USD"
)

// RateProvider returns how many units of `to` one unit of `from` buys.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type fetchOneResponse struct {
	Base   string                     `json:"base"`
	Result map[string]decimal.Decimal `json:"result"`
	Error  string                     `json:"error"`
}

// FastForex calls GET {base}/fetch-one?from=..&to=..&api_key=..
type FastForex struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewFastForex(baseURL, apiKey string, timeout time.Duration) *FastForex {
	return &FastForex{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (f *FastForex) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("api_key", f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/fetch-one?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, perr.Wrap(perr.CodeConversion, "build rate request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		// the request URL carries the api key, keep it out of the error
		return decimal.Zero, perr.Wrap(perr.CodeConversion, "rate lookup "+from+"->"+to, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, perr.Wrap(perr.CodeConversion, "read rate response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, perr.New(perr.CodeConversion, fmt.Sprintf("rate provider returned status %d", resp.StatusCode))
	}

	var out fetchOneResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, perr.Wrap(perr.CodeConversion, "decode rate response", err)
	}
	if out.Error != "" {
		return decimal.Zero, perr.New(perr.CodeConversion, "rate provider error: "+out.Error)
	}
	rate, ok := out.Result[to]
	if !ok {
		return decimal.Zero, perr.New(perr.CodeConversion, "rate response has no "+to+" entry")
	}
	if err := money.ValidateRate(rate); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func redactURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

// Package fines is the HTTP client for the fine-management backend.
package fines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	perr "github.com/example/fine-payment-bridge/pkg/errors"
)

// Fine identifies a payable fine and its owner.
type Fine struct {
	FineID           string `json:"-"`
	CivilNIC         string `json:"civilNIC"`
	FineManagementID string `json:"fineManagementId"`
}

type fineEnvelope struct {
	Data *Fine `json:"data"`
}

type amountEnvelope struct {
	Data *struct {
		Fine json.RawMessage `json:"fine"`
	} `json:"data"`
}

// Client talks to GET/PUT {base}/policeIssueFine/{id} and GET {base}/fine/{id}.
type Client struct {
	client  *http.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetFine fetches the fine reference. A missing fine is an upstream lookup error.
func (c *Client) GetFine(ctx context.Context, fineID string) (*Fine, error) {
	var env fineEnvelope
	if err := c.getJSON(ctx, "/policeIssueFine/"+url.PathEscape(fineID), &env); err != nil {
		return nil, perr.Wrap(perr.CodeUpstreamLookup, "fine lookup "+fineID, err)
	}
	if env.Data == nil {
		return nil, perr.New(perr.CodeUpstreamLookup, "fine lookup "+fineID+": empty data")
	}
	env.Data.FineID = fineID
	return env.Data, nil
}

// GetFineAmount fetches the amount in local currency. The backend may send the amount as a
// number or a numeric string.
func (c *Client) GetFineAmount(ctx context.Context, fineManagementID string) (decimal.Decimal, error) {
	var env amountEnvelope
	if err := c.getJSON(ctx, "/fine/"+url.PathEscape(fineManagementID), &env); err != nil {
		return decimal.Zero, perr.Wrap(perr.CodeUpstreamLookup, "fine amount "+fineManagementID, err)
	}
	if env.Data == nil {
		return decimal.Zero, perr.New(perr.CodeInvalidAmount, "fine amount "+fineManagementID+": missing")
	}
	amount, err := parseAmount(env.Data.Fine)
	if err != nil {
		return decimal.Zero, perr.Wrap(perr.CodeInvalidAmount, "fine amount "+fineManagementID, err)
	}
	return amount, nil
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, fmt.Errorf("missing")
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
		s = strings.TrimSpace(s)
	}
	return decimal.NewFromString(s)
}

// MarkPaid sets isPaid=true. The backend treats the write as idempotent.
func (c *Client) MarkPaid(ctx context.Context, fineID string) error {
	body, _ := json.Marshal(map[string]bool{"isPaid": true})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/policeIssueFine/"+url.PathEscape(fineID), bytes.NewReader(body))
	if err != nil {
		return perr.Wrap(perr.CodeReconcile, "build update request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return perr.Wrap(perr.CodeReconcile, "mark fine "+fineID+" paid", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return perr.New(perr.CodeReconcile, fmt.Sprintf("mark fine %s paid: backend returned status %d", fineID, resp.StatusCode))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}

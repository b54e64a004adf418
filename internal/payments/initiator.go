// Package payments opens checkout sessions for traffic fines: it checks that the caller owns
// the fine, prices it in the settlement currency and hands back the processor's redirect URL.
package payments

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fine-payment-bridge/internal/checkout"
	"github.com/example/fine-payment-bridge/internal/fines"
	"github.com/example/fine-payment-bridge/internal/fx"
	"github.com/example/fine-payment-bridge/internal/money"
	perr "github.com/example/fine-payment-bridge/pkg/errors"
	m "github.com/example/fine-payment-bridge/pkg/metrics"
)

const serviceName = "api-gateway"

// FineLookup is the read side of the fine-management backend.
type FineLookup interface {
	GetFine(ctx context.Context, fineID string) (*fines.Fine, error)
	GetFineAmount(ctx context.Context, fineManagementID string) (decimal.Decimal, error)
}

type SessionCreator interface {
	CreateSession(ctx context.Context, req checkout.Request) (*checkout.Session, error)
}

type Result struct {
	CheckoutURL   string
	SessionID     string
	AmountLocal   decimal.Decimal
	AmountSettled decimal.Decimal
	AmountMinor   int64
}

type Initiator struct {
	fines    FineLookup
	rates    fx.RateProvider
	sessions SessionCreator
	timeout  time.Duration
	log      *slog.Logger
}

// NewInitiator wires the collaborators. timeout bounds each outbound call.
func NewInitiator(f FineLookup, rates fx.RateProvider, sessions SessionCreator, timeout time.Duration, log *slog.Logger) *Initiator {
	return &Initiator{fines: f, rates: rates, sessions: sessions, timeout: timeout, log: log}
}

// Authorize reports whether civilNIC owns fine. Comparison is exact.
func Authorize(civilNIC string, fine *fines.Fine) error {
	if fine == nil || fine.CivilNIC != civilNIC {
		return perr.New(perr.CodeForbidden, "caller does not own fine")
	}
	return nil
}

// Initiate runs the steps in order; the first failure stops the rest.
func (in *Initiator) Initiate(ctx context.Context, civilNIC, fineID string) (*Result, error) {
	if civilNIC == "" || fineID == "" {
		return nil, perr.New(perr.CodeInvalidInput, "civilNIC and fineId are required")
	}
	log := in.log.With("fine_id", fineID)

	var fine *fines.Fine
	err := in.step(ctx, "FINE_LOOKUP", func(ctx context.Context) (err error) {
		fine, err = in.fines.GetFine(ctx, fineID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := Authorize(civilNIC, fine); err != nil {
		m.IncRequest(serviceName, "FAILED", "AUTHORIZE")
		log.Warn("fine owner mismatch")
		return nil, err
	}
	m.IncRequest(serviceName, "SUCCESS", "AUTHORIZE")

	var amount decimal.Decimal
	err = in.step(ctx, "AMOUNT_LOOKUP", func(ctx context.Context) (err error) {
		amount, err = in.fines.GetFineAmount(ctx, fine.FineManagementID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := money.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var rate decimal.Decimal
	err = in.step(ctx, "FX", func(ctx context.Context) (err error) {
		rate, err = in.rates.Rate(ctx, fx.LKR, fx.USD)
		return err
	})
	if err != nil {
		return nil, err
	}

	settled, minor, err := money.Convert(amount, rate)
	if err != nil {
		return nil, err
	}

	var sess *checkout.Session
	err = in.step(ctx, "CHECKOUT", func(ctx context.Context) (err error) {
		sess, err = in.sessions.CreateSession(ctx, checkout.Request{
			FineID:      fineID,
			CivilNIC:    civilNIC,
			AmountMinor: minor,
			Currency:    fx.USD,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("checkout session created",
		"session_id", sess.ID,
		"amount_lkr", amount.String(),
		"rate", rate.String(),
		"amount_usd", settled.StringFixed(money.MinorUnitPlaces),
		"unit_amount", minor,
	)
	return &Result{
		CheckoutURL:   sess.URL,
		SessionID:     sess.ID,
		AmountLocal:   amount,
		AmountSettled: settled,
		AmountMinor:   minor,
	}, nil
}

// step runs one outbound call under its own timeout and records it.
func (in *Initiator) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		m.IncRequest(serviceName, "FAILED", name)
		in.log.Error("initiate step failed", "step", name, "err", err)
		return err
	}
	m.IncRequest(serviceName, "SUCCESS", name)
	return nil
}

package settlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	m "github.com/example/fine-payment-bridge/pkg/metrics"
)

type Outcome string

const (
	OutcomeSettled      Outcome = "settled"
	OutcomeSettleFailed Outcome = "settle_failed"
	OutcomeNoFineID     Outcome = "missing_fine_id"
	OutcomeIgnored      Outcome = "ignored"
)

// FineWriter is the write side of the fine-management backend.
type FineWriter interface {
	MarkPaid(ctx context.Context, fineID string) error
}

// AuditPublisher receives one record per completed-checkout event. It may be nil.
type AuditPublisher interface {
	Publish(ctx context.Context, key, payload []byte) error
}

// Audit record kinds.
const (
	KindSettled      = "fine.settled"
	KindSettleFailed = "fine.settle_failed"
)

type AuditRecord struct {
	Kind      string    `json:"kind"`
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id,omitempty"`
	FineID    string    `json:"fine_id"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type Reconciler struct {
	fines   FineWriter
	audit   AuditPublisher
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
	pending sync.WaitGroup
}

func NewReconciler(fines FineWriter, audit AuditPublisher, timeout time.Duration, log *slog.Logger) *Reconciler {
	return &Reconciler{fines: fines, audit: audit, timeout: timeout, log: log, now: time.Now}
}

// Reconcile applies a verified event. It never returns an error: a failed write is logged and
// the delivery is still acknowledged. Redeliveries repeat the same idempotent write.
// Only the isPaid write runs on the caller's goroutine, bounded by the reconciler timeout; the
// audit record is published in the background.
func (r *Reconciler) Reconcile(ctx context.Context, ev Event) Outcome {
	log := r.log.With("event_id", ev.ID, "event_type", ev.Type)

	if ev.Type != EventCheckoutCompleted {
		log.Debug("webhook event ignored")
		m.IncSettlement(string(OutcomeIgnored))
		return OutcomeIgnored
	}
	if ev.FineID == "" {
		log.Error("checkout session has no fineId metadata", "session_id", ev.SessionID)
		m.IncSettlement(string(OutcomeNoFineID))
		return OutcomeNoFineID
	}
	log = log.With("fine_id", ev.FineID, "session_id", ev.SessionID)

	wctx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.fines.MarkPaid(wctx, ev.FineID)
	cancel()

	outcome := OutcomeSettled
	rec := AuditRecord{Kind: KindSettled, EventID: ev.ID, SessionID: ev.SessionID, FineID: ev.FineID, At: r.now().UTC()}
	if err != nil {
		outcome = OutcomeSettleFailed
		rec.Kind = KindSettleFailed
		rec.Error = err.Error()
		log.Error("failed to mark fine paid", "err", err)
	} else {
		log.Info("fine marked as paid")
	}
	m.IncSettlement(string(outcome))

	r.publish(ctx, log, rec)
	return outcome
}

func (r *Reconciler) publish(ctx context.Context, log *slog.Logger, rec AuditRecord) {
	if r.audit == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error("encode settlement audit record", "err", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if err := r.audit.Publish(pctx, []byte(rec.FineID), payload); err != nil {
			log.Error("publish settlement audit record", "err", err)
		}
	}()
}

// Wait blocks until every background audit publish has finished or timed out.
func (r *Reconciler) Wait() {
	r.pending.Wait()
}

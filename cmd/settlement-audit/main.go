// cmd/settlement-audit/main.go
//
// settlement-audit tails the settlement topic the gateway publishes to and logs every record,
// flagging fines whose isPaid write failed so they can be settled by hand.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/example/fine-payment-bridge/internal/config"
	"github.com/example/fine-payment-bridge/internal/settlement"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type tally struct {
	Settled   int
	Failed    int
	Malformed int
}

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "settlement-audit")

	brokers := strings.Split(config.Env("KAFKA_BROKERS", "kafka:9092"), ",")
	topic := config.Env("KAFKA_SETTLEMENT_TOPIC", "fines.settlement")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  config.Env("KAFKA_GROUP_ID", "settlement-audit"),
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("started", "topic", topic, "brokers", brokers)
	t := consume(ctx, r, logger)
	logger.Info("stopped", "settled", t.Settled, "failed", t.Failed, "malformed", t.Malformed)
}

// consume reads until the context is cancelled or the reader fails.
func consume(ctx context.Context, r messageReader, log *slog.Logger) tally {
	var t tally
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("read settlement record", "err", err)
			}
			return t
		}

		var rec settlement.AuditRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil || rec.FineID == "" {
			t.Malformed++
			log.Warn("malformed settlement record", "key", string(msg.Key), "offset", msg.Offset)
			continue
		}

		attrs := []any{"fine_id", rec.FineID, "event_id", rec.EventID, "session_id", rec.SessionID, "at", rec.At}
		switch rec.Kind {
		case settlement.KindSettled:
			t.Settled++
			log.Info("fine settled", attrs...)
		case settlement.KindSettleFailed:
			t.Failed++
			log.Error("fine paid but not marked, settle manually", append(attrs, "err", rec.Error)...)
		default:
			t.Malformed++
			log.Warn("unknown settlement record kind", append(attrs, "kind", rec.Kind)...)
		}
	}
}

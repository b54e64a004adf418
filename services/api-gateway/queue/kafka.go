// services/api-gateway/queue/kafka.go
package queue

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the bus needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Bus publishes settlement audit records keyed by fine id, so every record for one fine
// lands on the same partition in order.
type Bus struct {
	Brokers []string
	Topic   string
	w       messageWriter
}

func New(brokers []string, topic string) *Bus {
	return &Bus{
		Brokers: brokers,
		Topic:   topic,
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (b *Bus) Publish(ctx context.Context, key, payload []byte) error {
	return b.w.WriteMessages(ctx, kafka.Message{Key: key, Value: payload, Time: time.Now()})
}

func (b *Bus) Close() error {
	return b.w.Close()
}

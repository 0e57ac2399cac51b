package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits order-paid events keyed by order id, so every event
// for one order lands on the same partition.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) PublishOrderPaid(ctx context.Context, event domain.OrderPaidEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order paid event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order.paid")},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish order paid event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishOrderPaid(context.Context, domain.OrderPaidEvent) error { return nil }

func (Noop) Close() error { return nil }

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/config"
)

// TypeHeader is the message header carrying Event.Type, so consumers can
// route search and index events without decoding the payload.
const TypeHeader = "event-type"

// Event is one analytics or index announcement. Key picks the partition:
// index events key on the shard path so announcements for one file stay
// ordered. Type travels in the TypeHeader header.
type Event struct {
	Key   string
	Type  string
	Value any
}

// Producer writes Events as JSON to a single topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *slog.Logger
}

// NewProducer creates a Producer for topic. Writes wait for all in-sync
// replicas.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer: w,
		topic:  topic,
		logger: slog.Default().With("component", "event-producer", "topic", topic),
	}
}

func toMessage(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event %q: %w", event.Type, event.Key, err)
	}
	msg := kafka.Message{Key: []byte(event.Key), Value: value}
	if event.Type != "" {
		msg.Headers = []kafka.Header{{Key: TypeHeader, Value: []byte(event.Type)}}
	}
	return msg, nil
}

// Publish writes one event and waits for the broker to acknowledge it.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("event not delivered",
			"event_type", event.Type,
			"event_key", event.Key,
			"error", err,
		)
		return fmt.Errorf("publishing %s event to %s: %w", event.Type, p.topic, err)
	}
	p.logger.Debug("event delivered",
		"event_type", event.Type,
		"event_key", event.Key,
		"bytes", len(msg.Value),
	)
	return nil
}

// PublishBatch writes events in one call. Nothing is sent when any event
// fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	var size int
	for _, event := range events {
		msg, err := toMessage(event)
		if err != nil {
			return err
		}
		size += len(msg.Value)
		messages = append(messages, msg)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Warn("event batch not delivered", "events", len(messages), "error", err)
		return fmt.Errorf("publishing %d events to %s: %w", len(messages), p.topic, err)
	}
	p.logger.Debug("event batch delivered", "events", len(messages), "bytes", size)
	return nil
}

// Close flushes buffered events and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

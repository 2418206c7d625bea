package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes ledger events keyed by rent call id, so one stream always lands
// on one partition in revision order. Writes are synchronous: the outbox only marks a
// message processed once the broker has acknowledged it.
type EventPublisher struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewEventPublisher(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EventPublisher, error) {
	if cfg.EventTopic == "" {
		return nil, fmt.Errorf("kafka event topic is not configured")
	}
	if err := dialAndEnsureTopic(cfg.Brokers, cfg.EventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure event topic %s exists: %w", cfg.EventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &EventPublisher{
		logger: logger,
		writer: writer,
		topic:  cfg.EventTopic,
	}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, key string, value any, headers map[string]string) error {
	var payload []byte
	switch v := value.(type) {
	case json.RawMessage:
		payload = v
	case []byte:
		payload = v
	default:
		var err error
		if payload, err = json.Marshal(value); err != nil {
			return fmt.Errorf("failed to marshal event for %s: %w", p.topic, err)
		}
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: kafkaHeaders(headers),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish ledger event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger event", "topic", p.topic, "key", key)
	return nil
}

func (p *EventPublisher) Close() error {
	p.logger.Info("Closing ledger event publisher", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

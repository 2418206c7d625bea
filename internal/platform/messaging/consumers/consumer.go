package consumers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/rent-reconciliation-ledger/internal/platform/messaging/producers"
	"github.com/segmentio/kafka-go"
)

const defaultMaxAttempts = 5

// Message is a fetched record handed to a MessageHandler
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

type MessageHandler func(ctx context.Context, msg Message) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// kafkaReader wraps kafka.Reader methods for testing
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the payment command topic inside a consumer group. An offset is
// committed only after the handler returns nil. A failing message is handed to the handler
// again after fetchBackoff, up to maxAttempts times; it is then parked on the DLQ and
// committed so the rest of the partition keeps flowing.
type KafkaConsumer struct {
	reader       kafkaReader
	dlq          producers.DeadLetterPublisher
	logger       *slog.Logger
	topic        string
	groupID      string
	fetchBackoff time.Duration
	maxAttempts  int
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, dlq producers.DeadLetterPublisher) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}
	maxAttempts := cfg.MaxHandleAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &KafkaConsumer{
		dlq:          dlq,
		logger:       logger,
		topic:        cfg.CommandTopic,
		groupID:      cfg.ConsumerGroup,
		fetchBackoff: time.Second,
		maxAttempts:  maxAttempts,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.CommandTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
	}
}

// Subscribe starts the fetch loop in a goroutine; it stops when ctx is canceled
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)
	go c.run(ctx, handler)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	var pending *kafka.Message
	attempts := 0
	for {
		if ctx.Err() != nil {
			c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
			return
		}

		msg := pending
		if msg == nil {
			fetched, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
				c.sleep(ctx)
				continue
			}
			msg = &fetched
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if err := handler(ctx, toMessage(*msg)); err != nil {
			attempts++
			if attempts < c.maxAttempts {
				c.logger.Error("Failed to process message, will retry before committing",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"key", string(msg.Key),
					"attempt", attempts,
					"error", err,
				)
				pending = msg
				c.sleep(ctx)
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			c.park(ctx, *msg, attempts, err)
		}
		pending = nil
		attempts = 0

		if err := c.reader.CommitMessages(ctx, *msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// park gives up on a message the handler kept failing. It is copied to the DLQ when one is
// configured; either way the offset is committed afterwards.
func (c *KafkaConsumer) park(ctx context.Context, msg kafka.Message, attempts int, cause error) {
	reason := fmt.Sprintf("handler failed after %d attempts: %v", attempts, cause)
	log := c.logger.With(
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"attempts", attempts,
	)

	if c.dlq == nil {
		log.Error("Skipping message after repeated failures", "error", cause)
		return
	}
	if err := c.dlq.PublishToDLQ(ctx, string(msg.Key), msg.Value, reason); err != nil {
		log.Error("Failed to park message on DLQ, skipping it", "cause", cause, "error", err)
		return
	}
	log.Error("Parked message on DLQ after repeated failures", "error", cause)
}

func (c *KafkaConsumer) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.fetchBackoff):
	}
}

func toMessage(msg kafka.Message) Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/novabank/core-banking/internal/config"
)

// EmailRequestProducer queues best-effort transactional email for the
// notifier. Publish failures are swallowed by callers; email never blocks or
// rolls back a ledger operation.
type EmailRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewEmailRequestProducer creates the email producer and ensures the topic
// exists. Returns nil (no error) when no email topic is configured; callers
// must be nil-safe.
func NewEmailRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EmailRequestProducer, error) {
	if cfg.EmailTopic == "" {
		logger.Warn("Kafka email topic is not configured, email requests will not be queued")
		return nil, nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for email request producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.EmailTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure email topic %s exists: %w", cfg.EmailTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EmailTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &EmailRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EmailTopic,
	}, nil
}

func (p *EmailRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish email request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish email request to %s: %w", p.topic, err)
	}

	return nil
}

func (p *EmailRequestProducer) Close() error {
	p.logger.Info("Closing email request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

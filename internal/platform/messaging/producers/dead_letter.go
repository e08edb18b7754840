package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/accounting-ledger-sync/internal/config"
)

// DLQProducer publishes messages that failed processing to a dead letter
// topic. When no DLQ topic is configured the producer is a no-op.
type DLQProducer struct {
	writer KafkaWriter
	logger *slog.Logger
	topic  string
}

func NewDLQProducer(logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Warn("DLQ topic is not configured, DLQ producer will be disabled")
		return &DLQProducer{logger: logger}, nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka broker %s: %w", cfg.Brokers, err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}

	return &DLQProducer{
		writer: writer,
		logger: logger,
		topic:  cfg.DLQTopic,
	}, nil
}

// PublishToDLQ wraps the original message with the failure reason and writes
// it to the dead letter topic.
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p.writer == nil {
		p.logger.Warn("DLQ producer is disabled, dropping message",
			"key", key,
			"dlq_reason", reason,
		)
		return nil
	}

	dlqPayload := map[string]interface{}{
		"original_key":   key,
		"original_value": string(originalMessageValue),
		"dlq_reason":     reason,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(dlqPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "dlq-reason", Value: []byte(reason)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message to DLQ",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to write DLQ message: %w", err)
	}

	p.logger.Info("Published message to DLQ",
		"topic", p.topic,
		"key", key,
		"dlq_reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/accounting-ledger-sync/internal/config"
)

// RunReportProducer publishes run reports to Kafka so downstream dashboards
// and alerting can consume sync outcomes without polling the API.
type RunReportProducer struct {
	writer KafkaWriter
	logger *slog.Logger
	topic  string
}

func NewRunReportProducer(logger *slog.Logger, cfg *config.KafkaConfig) (*RunReportProducer, error) {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka broker %s: %w", cfg.Brokers, err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.ReportTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ReportTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		// Reports are low volume, one per run. Synchronous writes keep
		// publish errors visible to the caller.
		Async: false,
	}

	return &RunReportProducer{
		writer: writer,
		logger: logger,
		topic:  cfg.ReportTopic,
	}, nil
}

// Publish serializes the report and writes it keyed by run ID.
func (p *RunReportProducer) Publish(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish run report",
			"topic", p.topic,
			"run_id", key,
			"error", err,
		)
		return fmt.Errorf("failed to write run report message: %w", err)
	}

	p.logger.Debug("Published run report", "topic", p.topic, "run_id", key)
	return nil
}

func (p *RunReportProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

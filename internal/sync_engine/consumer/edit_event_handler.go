package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/platform/messaging/producers"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

// EditEvent is the bulk-edit signal the source accounting system publishes
// when documents change outside the regular polling window
type EditEvent struct {
	Kind          document.Kind `json:"kind"`
	IDs           []string      `json:"ids"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}

// EditEventHandler handles incoming document edit events from Kafka
type EditEventHandler struct {
	syncService service.SyncService
	producer    producers.DeadLetterPublisher
	logger      *slog.Logger
}

// NewEditEventHandler creates a new handler
func NewEditEventHandler(
	logger *slog.Logger,
	syncService service.SyncService,
	producer producers.DeadLetterPublisher,
) *EditEventHandler {
	return &EditEventHandler{
		syncService: syncService,
		producer:    producer,
		logger:      logger,
	}
}

// HandleMessage processes Kafka messages carrying edit events
func (h *EditEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event EditEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal edit event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error()), err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	if len(event.IDs) == 0 {
		emptyMsg := "Edit event carries no document ids"
		logger.Error(emptyMsg, "message_key", string(key), "kind", event.Kind)
		return h.deadLetter(ctx, key, value, emptyMsg, fmt.Errorf("edit event has no document ids"))
	}

	logger.Info("Received edit event",
		"kind", event.Kind,
		"count", len(event.IDs),
	)

	// The cache keys documents by the raw id the source issues; the kind on
	// the event only scopes the signal
	if err := h.syncService.MarkEdited(ctx, event.IDs); err != nil {
		logger.Error("Failed to mark edited documents",
			"kind", event.Kind,
			"count", len(event.IDs),
			"error", err,
		)
		return fmt.Errorf("marking %d documents edited failed: %w", len(event.IDs), err)
	}

	logger.Info("Successfully marked documents for re-fetch", "count", len(event.IDs))
	return nil // Success, commit offset
}

// deadLetter routes an unprocessable message to the DLQ. A successful DLQ
// publish commits the offset; a failed one returns the original error so
// Kafka redelivers.
func (h *EditEventHandler) deadLetter(ctx context.Context, key []byte, value []byte, reason string, original error) error {
	if h.producer != nil {
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", original,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
			return nil
		}
	}
	return fmt.Errorf("unprocessable edit event: %w", original)
}

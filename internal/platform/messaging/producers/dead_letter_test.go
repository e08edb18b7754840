package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			writer: mockWriter,
			logger: logger,
			topic:  "document_edit_events_dlq",
		}

		original := []byte(`{"kind":"voucher","ids":[]}`)
		reason := "edit event carries no document ids"

		mockWriter.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			if string(msg.Key) != "msg-key-1" {
				return false
			}
			var payload map[string]interface{}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				return false
			}
			if payload["original_value"] != string(original) || payload["dlq_reason"] != reason {
				return false
			}
			return len(msg.Headers) == 1 &&
				msg.Headers[0].Key == "dlq-reason" &&
				string(msg.Headers[0].Value) == reason
		})).Return(nil).Once()

		err := producer.PublishToDLQ(context.Background(), "msg-key-1", original, reason)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("DisabledProducerDropsMessage", func(t *testing.T) {
		producer := &DLQProducer{logger: logger}

		err := producer.PublishToDLQ(context.Background(), "msg-key-2", []byte("garbage"), "unparseable")
		require.NoError(t, err, "disabled DLQ producer should drop silently")
	})

	t.Run("WriteFailure", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			writer: mockWriter,
			logger: logger,
			topic:  "document_edit_events_dlq",
		}

		writeErr := errors.New("broker unavailable")
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(writeErr).Once()

		err := producer.PublishToDLQ(context.Background(), "msg-key-3", []byte("{}"), "bad payload")
		require.Error(t, err)
		assert.ErrorIs(t, err, writeErr)
		mockWriter.AssertExpectations(t)
	})
}

func TestDLQProducer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ClosesWriter", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		mockWriter.On("Close").Return(nil).Once()

		producer := &DLQProducer{writer: mockWriter, logger: logger}
		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("NilWriter", func(t *testing.T) {
		producer := &DLQProducer{logger: logger}
		require.NoError(t, producer.Close())
	})
}

package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/novabank/core-banking/internal/config"
	"github.com/novabank/core-banking/internal/domain/shared"
)

func TestEmailRequestProducer_Publish(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	topic := "test-email-requests"
	ctx := context.Background()

	t.Run("SuccessfulPublish", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EmailRequestProducer{
			logger: logger,
			writer: mockWriter,
			topic:  topic,
		}

		key := "user-key"
		value := &shared.EmailRequest{
			UserID:    uuid.New(),
			To:        "owner@example.com",
			Subject:   "Transfer update",
			Body:      "Your transfer of 50.00 USD was declined.",
			Reference: "TRF-20250601-ABCDEF12",
			Timestamp: time.Now().UTC(),
		}
		expectedJSONValue, _ := json.Marshal(value)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 &&
				string(msgs[0].Key) == key &&
				string(msgs[0].Value) == string(expectedJSONValue)
		})).Return(nil).Once()

		err := producer.Publish(ctx, key, value)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("PublishReturnsErrorOnWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EmailRequestProducer{
			logger: logger,
			writer: mockWriter,
			topic:  topic,
		}
		writerError := errors.New("kafka write error")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.Publish(ctx, "k", map[string]string{"data": "d"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), writerError.Error())
		mockWriter.AssertExpectations(t)
	})
}

func TestNewEmailRequestProducer_NoTopicConfigured(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	producer, err := NewEmailRequestProducer(context.Background(), logger, &config.KafkaConfig{})
	require.NoError(t, err)
	assert.Nil(t, producer)
}

func TestEmailRequestProducer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mockWriter := new(MockKafkaWriter)
	producer := &EmailRequestProducer{
		logger: logger,
		writer: mockWriter,
		topic:  "test-email-requests-close",
	}

	mockWriter.On("Close").Return(nil).Once()
	require.NoError(t, producer.Close())
	mockWriter.AssertExpectations(t)
}

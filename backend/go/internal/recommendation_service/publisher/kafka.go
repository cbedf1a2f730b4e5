package publisher

import (
	"context"
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the dispatcher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher writes recommendation emails to the email-dispatch topic, keyed by recipient.
type KafkaDispatcher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaDispatcher creates a new KafkaDispatcher.
func NewKafkaDispatcher(writer MessageWriter, timeout time.Duration) *KafkaDispatcher {
	return &KafkaDispatcher{writer: writer, timeout: timeout}
}

// Dispatch marshals the message to JSON and sends it to Kafka.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg models.RecommendationMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %v", ErrDispatch, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RecipientEmail),
		Value: jsonData,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: write message to kafka: %w", ErrDispatch, err)
	}
	return nil
}

// Close closes the underlying writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/internal/models"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamPublisher is the part of jetstream.JetStream the dispatcher uses.
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager is the part of jetstream.JetStream used to create the stream.
type StreamManager interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// EnsureStream creates the dispatch stream when it does not exist yet.
func EnsureStream(ctx context.Context, js StreamManager, cfg config.NATSConfig) error {
	_, err := js.Stream(ctx, cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("check stream %s: %w", cfg.Stream, err)
	}
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		Discard:   jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", cfg.Stream, err)
	}
	return nil
}

// NATSDispatcher publishes messages to a JetStream subject and waits for the ack.
type NATSDispatcher struct {
	js      JetStreamPublisher
	subject string
	timeout time.Duration
}

// NewNATSDispatcher creates a NATSDispatcher.
func NewNATSDispatcher(js JetStreamPublisher, subject string, timeout time.Duration) *NATSDispatcher {
	return &NATSDispatcher{js: js, subject: subject, timeout: timeout}
}

// Dispatch implements Dispatcher.
func (d *NATSDispatcher) Dispatch(ctx context.Context, msg models.RecommendationMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %v", ErrDispatch, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if _, err := d.js.Publish(ctx, d.subject, payload); err != nil {
		return fmt.Errorf("%w: publish to %s: %w", ErrDispatch, d.subject, err)
	}
	return nil
}

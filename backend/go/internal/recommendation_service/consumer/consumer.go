package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/thejerf/suture/v4"
)

const commitTimeout = 10 * time.Second

// MessageReader is the subset of *kafka.Reader used by a Loop.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one message. A returned error is logged; the message is committed either way.
type Handler func(ctx context.Context, msg kafka.Message) error

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMessageObserver is called after every handled message.
func WithMessageObserver(fn func(topic string, err error)) LoopOption {
	return func(l *Loop) { l.observe = fn }
}

// Loop consumes one topic strictly one message at a time.
// It implements suture.Service; cancelling the Serve context stops it between messages.
type Loop struct {
	name    string
	reader  MessageReader
	handle  Handler
	log     *logger.Logger
	observe func(topic string, err error)

	mu      sync.Mutex // held while a message is processed
	drained bool
}

// NewLoop creates a consumption loop.
func NewLoop(name string, reader MessageReader, handler Handler, log *logger.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		name:   name,
		reader: reader,
		handle: handler,
		log:    log.WithField("loop", name),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Serve runs until ctx is cancelled. A message that has been fetched is always
// handled and committed before the loop checks ctx again.
func (l *Loop) Serve(ctx context.Context) error {
	l.log.Info("consumer loop started")
	for {
		if err := ctx.Err(); err != nil {
			l.log.Info("consumer loop stopped")
			return err
		}

		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Info("consumer loop stopped")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				l.log.Warn("reader closed, loop will not restart")
				return suture.ErrDoNotRestart
			}
			l.log.WithError(models.NewErrorInfo(err, "fetch_failed")).Error("error fetching message from Kafka")
			return fmt.Errorf("%s: fetch: %w", l.name, err)
		}

		l.process(context.WithoutCancel(ctx), msg)
	}
}

func (l *Loop) process(ctx context.Context, msg kafka.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.drained {
		// left uncommitted, Kafka redelivers it
		return
	}

	err := l.handle(ctx, msg)
	if err != nil {
		payload := map[string]interface{}{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}
		var evtErr *EventError
		if errors.As(err, &evtErr) {
			payload["event_id"] = evtErr.EventID
		}
		l.log.WithError(models.NewErrorInfo(err, "handler_failed")).WithPayload(payload).Error("error handling Kafka message")
	}
	if l.observe != nil {
		l.observe(msg.Topic, err)
	}

	commitCtx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()
	if err := l.reader.CommitMessages(commitCtx, msg); err != nil {
		l.log.WithError(models.NewErrorInfo(err, "commit_failed")).Error("failed to commit Kafka message")
	}
}

// Drain waits for the in-flight message to be handled and committed. The loop handles
// nothing after that. Call it before closing the reader and downstream clients.
func (l *Loop) Drain() {
	l.mu.Lock()
	l.drained = true
	l.mu.Unlock()
}

// String names the loop in supervisor events.
func (l *Loop) String() string { return l.name }

// Close closes the underlying reader.
func (l *Loop) Close() error {
	return l.reader.Close()
}

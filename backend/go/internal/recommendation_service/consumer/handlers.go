package consumer

import (
	"context"
	"errors"
	"fmt"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/service"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// ErrMalformedMessage is returned for payloads that cannot be decoded or fail validation.
var ErrMalformedMessage = errors.New("malformed message")

// EventError carries the id of the event a failed message belongs to. The loop logs it.
type EventError struct {
	EventID int64
	Err     error
}

func (e *EventError) Error() string { return fmt.Sprintf("event %d: %v", e.EventID, e.Err) }

func (e *EventError) Unwrap() error { return e.Err }

// Ingester stores embeddings for created events.
type Ingester interface {
	Ingest(ctx context.Context, evt models.EventCreated) error
}

// Recommender handles booking triggers.
type Recommender interface {
	Handle(ctx context.Context, req models.RecommendationRequest) (service.Outcome, error)
}

// IngestionHandler decodes event-created messages and passes them to the pipeline.
func IngestionHandler(ing Ingester) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt models.EventCreated
		if err := decode(msg.Value, &evt); err != nil {
			if id := peekEventID(msg.Value); id > 0 {
				return &EventError{EventID: id, Err: err}
			}
			return err
		}
		return ing.Ingest(ctx, evt)
	}
}

// RecommendationHandler decodes recommendation requests and runs the orchestrator.
func RecommendationHandler(rec Recommender) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var req models.RecommendationRequest
		if err := decode(msg.Value, &req); err != nil {
			return err
		}
		_, err := rec.Handle(ctx, req)
		return err
	}
}

func decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if err := models.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return nil
}

// peekEventID reads just the id of a message that failed to decode, or 0.
func peekEventID(data []byte) int64 {
	var head struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0
	}
	return head.ID
}

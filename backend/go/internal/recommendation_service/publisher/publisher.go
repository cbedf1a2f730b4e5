// Package publisher sends finished recommendation messages to the outbound channel.
package publisher

import (
	"context"
	"errors"

	"TicketBlitz_Recommendation/backend/go/internal/models"
)

// ErrDispatch wraps every failure to publish an outbound message.
var ErrDispatch = errors.New("dispatch failed")

// Dispatcher publishes one message. There is no buffering and no retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg models.RecommendationMessage) error
}

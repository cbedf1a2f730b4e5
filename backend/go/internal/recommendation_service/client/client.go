// Package client holds the collaborators the fallback tiers read from:
// the redis cache of latest events and the external event service.
package client

import (
	"context"
	"errors"

	"TicketBlitz_Recommendation/backend/go/internal/models"
)

// ErrDownstreamUnavailable marks connectivity and status failures of a collaborator.
var ErrDownstreamUnavailable = errors.New("downstream unavailable")

// LatestEventsSource returns up to limit recent events, most recent first.
type LatestEventsSource interface {
	LatestEvents(ctx context.Context, limit int) ([]models.EventSummary, error)
}

package tier

import (
	"context"
	"fmt"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/client"
)

// LatestEventsTier renders the trending template from a source of latest events.
// The cache tier and the external-service tier differ only in their source.
type LatestEventsTier struct {
	name   string
	source client.LatestEventsSource
	limit  int
	count  int
	brand  string
}

// NewCacheTier reads latest events from the cache.
func NewCacheTier(src client.LatestEventsSource, limit, count int, brand string) *LatestEventsTier {
	return &LatestEventsTier{name: NameCache, source: src, limit: limit, count: count, brand: brand}
}

// NewExternalTier reads latest events from the external event service.
func NewExternalTier(src client.LatestEventsSource, limit, count int, brand string) *LatestEventsTier {
	return &LatestEventsTier{name: NameExternal, source: src, limit: limit, count: count, brand: brand}
}

func (t *LatestEventsTier) Name() string { return t.name }

func (t *LatestEventsTier) Attempt(ctx context.Context, in Input) (Content, error) {
	events, err := t.source.LatestEvents(ctx, t.limit)
	if err != nil {
		return Content{}, fmt.Errorf("%w: %s: %w", ErrTierFailed, t.name, err)
	}
	picked := SelectLatest(events, in.EventID, t.count)
	if len(picked) == 0 {
		return Content{}, fmt.Errorf("%w: %s: no events other than %d", ErrTierFailed, t.name, in.EventID)
	}
	return Content{
		Subject: SubjectTrending,
		Body:    TrendingBody(in.Username, in.Booked.Title, picked, t.brand),
	}, nil
}

// SelectLatest drops the booked event and keeps the first count events in source order.
func SelectLatest(events []models.EventSummary, bookedID int64, count int) []models.EventSummary {
	out := make([]models.EventSummary, 0, count)
	for _, e := range events {
		if len(out) >= count {
			break
		}
		if e.ID == bookedID {
			continue
		}
		out = append(out, e)
	}
	return out
}

package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// RedisReader is the part of the redis client the cache needs.
type RedisReader interface {
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisCache reads the latest-events cache: a sorted set of event ids scored by
// recency plus one JSON document per event.
type RedisCache struct {
	rdb       RedisReader
	latestKey string
	eventKey  string
	timeout   time.Duration
	log       *logger.Logger
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(rdb RedisReader, cfg config.RedisConfig, log *logger.Logger) *RedisCache {
	return &RedisCache{
		rdb:       rdb,
		latestKey: cfg.LatestKey,
		eventKey:  cfg.EventKeyPrefix,
		timeout:   cfg.Timeout,
		log:       log,
	}
}

// LatestEventIDs returns up to limit ids, most recent first.
func (c *RedisCache) LatestEventIDs(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	members, err := c.rdb.ZRevRange(ctx, c.latestKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis zrevrange %s: %v", ErrDownstreamUnavailable, c.latestKey, err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			c.log.WithField("member", m).Warn("latest events set holds a non-numeric id, skipping")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EventByID returns the cached event; ok is false when the key is absent.
func (c *RedisCache) EventByID(ctx context.Context, id int64) (event models.EventSummary, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.rdb.Get(ctx, c.eventKey+strconv.FormatInt(id, 10)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.EventSummary{}, false, nil
	}
	if err != nil {
		return models.EventSummary{}, false, fmt.Errorf("%w: redis get event %d: %v", ErrDownstreamUnavailable, id, err)
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		return models.EventSummary{}, false, fmt.Errorf("decode cached event %d: %w", id, err)
	}
	if event.ID == 0 {
		event.ID = id
	}
	return event, true, nil
}

// LatestEvents implements LatestEventsSource. Ids without a cached document are skipped.
func (c *RedisCache) LatestEvents(ctx context.Context, limit int) ([]models.EventSummary, error) {
	ids, err := c.LatestEventIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	events := make([]models.EventSummary, 0, len(ids))
	for _, id := range ids {
		evt, ok, err := c.EventByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	base, _ := test.NewNullLogger()
	return logger.FromEntry(logrus.NewEntry(base))
}

type fakeRedis struct {
	members  []string
	zErr     error
	docs     map[string]string
	getErr   error
	lastStop int64
}

func (f *fakeRedis) ZRevRange(_ context.Context, _ string, _, stop int64) *redis.StringSliceCmd {
	f.lastStop = stop
	return redis.NewStringSliceResult(f.members, f.zErr)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	doc, ok := f.docs[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(doc, nil)
}

func redisConfig() config.RedisConfig {
	return config.RedisConfig{LatestKey: "events:latest", EventKeyPrefix: "event:", Timeout: time.Second}
}

func TestRedisCache_LatestEventsSkipsMissing(t *testing.T) {
	fake := &fakeRedis{
		members: []string{"5", "6", "9", "7", "12"},
		docs: map[string]string{
			"event:5": `{"id":5,"title":"Jazz Night","location":"Hall A","date":"2025-06-01T19:30:00"}`,
			"event:6": `{"id":6,"title":"Blues Evening","location":"Hall B","date":[2025,6,2,20,0]}`,
			"event:9": `{"id":9,"title":"Tech Expo","location":"Center","date":null}`,
			"event:7": `{"id":7,"title":"Soul Revue","location":"Hall C"}`,
		},
	}
	cache := NewRedisCache(fake, redisConfig(), testLogger())

	events, err := cache.LatestEvents(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(4), fake.lastStop)

	var ids []int64
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{5, 6, 9, 7}, ids)
	assert.Equal(t, "2025-06-02 20:00", events[1].Date.Display("TBA"))
	assert.Equal(t, "TBA", events[2].Date.Display("TBA"))
}

func TestRedisCache_ConnectionFailure(t *testing.T) {
	cache := NewRedisCache(&fakeRedis{zErr: errors.New("dial tcp: connection refused")}, redisConfig(), testLogger())

	_, err := cache.LatestEvents(context.Background(), 5)
	assert.ErrorIs(t, err, ErrDownstreamUnavailable)
}

func TestRedisCache_GetFailure(t *testing.T) {
	cache := NewRedisCache(&fakeRedis{members: []string{"1"}, getErr: errors.New("i/o timeout")}, redisConfig(), testLogger())

	_, err := cache.LatestEvents(context.Background(), 5)
	assert.ErrorIs(t, err, ErrDownstreamUnavailable)
}

func TestRedisCache_NonNumericMemberSkipped(t *testing.T) {
	cache := NewRedisCache(&fakeRedis{members: []string{"abc", "3"}}, redisConfig(), testLogger())

	ids, err := cache.LatestEventIDs(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)
}

func TestRedisCache_EventByIDFillsMissingID(t *testing.T) {
	cache := NewRedisCache(&fakeRedis{docs: map[string]string{"event:8": `{"title":"Funk Party"}`}}, redisConfig(), testLogger())

	evt, ok, err := cache.EventByID(context.Background(), 8)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(8), evt.ID)

	_, ok, err = cache.EventByID(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventServiceClient_LatestEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/latest", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":11,"title":"Opera Gala","location":"Opera House","date":"2025-09-10T19:00:00Z"},{"id":12,"title":"Comedy Night","location":"Club","date":null}]`))
	}))
	defer srv.Close()

	c := NewEventServiceClient(srv.Client(), srv.URL+"/", time.Second, testLogger())
	events, err := c.LatestEvents(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Opera Gala", events[0].Title)
	assert.True(t, events[1].Date.IsZero())
}

func TestEventServiceClient_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewEventServiceClient(srv.Client(), srv.URL, time.Second, testLogger()).LatestEvents(context.Background(), 5)
	assert.ErrorIs(t, err, ErrDownstreamUnavailable)
}

func TestEventServiceClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewEventServiceClient(srv.Client(), srv.URL, 50*time.Millisecond, testLogger()).LatestEvents(context.Background(), 5)
	assert.ErrorIs(t, err, ErrDownstreamUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type stubResolver struct {
	url string
	err error
}

func (s stubResolver) Resolve(context.Context, string) (string, error) { return s.url, s.err }

func TestEventServiceClient_Resolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	resolved := NewEventServiceClient(srv.Client(), "http://127.0.0.1:1", time.Second, testLogger(),
		WithResolver(stubResolver{url: srv.URL}, "event-service"))
	events, err := resolved.LatestEvents(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, events)

	fallback := NewEventServiceClient(srv.Client(), srv.URL, time.Second, testLogger(),
		WithResolver(stubResolver{err: errors.New("no instances")}, "event-service"))
	_, err = fallback.LatestEvents(context.Background(), 5)
	assert.NoError(t, err)
}

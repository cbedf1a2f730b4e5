package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/internal/llm"
	"TicketBlitz_Recommendation/backend/go/internal/metrics"
	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/tier"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"
	"TicketBlitz_Recommendation/backend/go/pkg/rotation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChain_UnreachableRedisKeepsCacheTier(t *testing.T) {
	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":5,"title":"Booked","location":"Hall A"},{"id":8,"title":"Street Food Fair","location":"Pier 3"}]`))
	}))
	defer events.Close()

	cfg := config.Default()
	cfg.Databases.Redis.Address = "127.0.0.1:1"
	cfg.Databases.Redis.Timeout = 200 * time.Millisecond
	cfg.EventService.BaseURL = events.URL
	cfg.EventService.Timeout = 2 * time.Second

	base, hook := test.NewNullLogger()
	log := logger.FromEntry(logrus.NewEntry(base))
	pool := rotation.New[llm.LLM]("generation", nil, rotation.WithLogger(log))

	var cleanup closers
	defer cleanup.closeAll(log)

	chain, err := buildChain(context.Background(), cfg, pool, log, metrics.New(prometheus.NewRegistry()), &cleanup)
	require.NoError(t, err)
	assert.Equal(t, []string{tier.NameAI, tier.NameCache, tier.NameExternal, tier.NameStatic}, chain.Tiers())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Redis unreachable at startup, cache tier will retry per request" {
			warned = true
		}
	}
	assert.True(t, warned)

	res := chain.Generate(context.Background(), tier.Input{
		Username: "ann",
		Booked:   models.EventSummary{ID: 5, Title: "Booked"},
		EventID:  5,
	})
	assert.Equal(t, tier.NameExternal, res.Tier)
	assert.Contains(t, res.Content.Body, "Street Food Fair")
	assert.NotContains(t, res.Content.Body, "Booked -")
}

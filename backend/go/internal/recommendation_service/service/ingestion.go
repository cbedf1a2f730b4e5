package service

import (
	"context"
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/store"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"
)

// Embedder produces a vector of the configured dimension for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IngestionOption configures an IngestionPipeline.
type IngestionOption func(*IngestionPipeline)

// WithIngestObserver is called once per event with the ingestion result.
func WithIngestObserver(fn func(err error)) IngestionOption {
	return func(p *IngestionPipeline) { p.observe = fn }
}

// WithIngestClock replaces time.Now for created_at timestamps.
func WithIngestClock(now func() time.Time) IngestionOption {
	return func(p *IngestionPipeline) { p.now = now }
}

// IngestionPipeline turns creation events into stored embedding records.
type IngestionPipeline struct {
	embedder Embedder
	store    store.SimilarityStore
	log      *logger.Logger
	observe  func(err error)
	now      func() time.Time
}

// NewIngestionPipeline creates an IngestionPipeline.
func NewIngestionPipeline(embedder Embedder, st store.SimilarityStore, log *logger.Logger, opts ...IngestionOption) *IngestionPipeline {
	p := &IngestionPipeline{embedder: embedder, store: st, log: log, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest embeds and upserts one event. A failure drops the event: it is logged
// with the event id and returned, and the caller moves on to the next message.
func (p *IngestionPipeline) Ingest(ctx context.Context, evt models.EventCreated) (err error) {
	log := p.log.WithField("event_id", evt.ID)
	defer func() {
		if p.observe != nil {
			p.observe(err)
		}
		if err != nil {
			log.WithError(models.NewErrorInfo(err, "ingestion_failed")).Error("event dropped")
		}
	}()

	vec, err := p.embedder.Embed(ctx, evt.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed event %d: %w", evt.ID, err)
	}
	if err := p.store.UpsertEmbedding(ctx, evt.ToRecord(vec, p.now())); err != nil {
		return fmt.Errorf("store event %d: %w", evt.ID, err)
	}
	log.WithField("dimension", len(vec)).Info("event embedding stored")
	return nil
}

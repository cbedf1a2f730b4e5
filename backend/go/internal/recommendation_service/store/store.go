// Package store holds the similarity store: embedding records keyed by event id,
// the append-only booking history and the nearest-neighbour query over embeddings.
package store

import (
	"context"
	"errors"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"
)

// ErrNotFound is returned by GetEmbedding when no record exists for the event id.
var ErrNotFound = errors.New("embedding not found")

// SimilarityStore defines the persistence and query surface used by the
// ingestion pipeline and the recommendation orchestrator.
type SimilarityStore interface {
	// GetEmbedding returns the record for eventID or ErrNotFound.
	GetEmbedding(ctx context.Context, eventID int64) (models.EmbeddingRecord, error)
	// UpsertEmbedding writes the record keyed by its event id. Re-ingesting an id
	// replaces the event fields and embedding and keeps the original created_at.
	UpsertEmbedding(ctx context.Context, rec models.EmbeddingRecord) error
	// RecordHistory appends one booking history row.
	RecordHistory(ctx context.Context, entry models.HistoryRecord) error
	// TopKSimilar returns at most k events ordered by decreasing similarity,
	// never including excludeEventID.
	TopKSimilar(ctx context.Context, embedding []float32, excludeEventID int64, k int) ([]models.SimilarEvent, error)
}

// HistoryRecorder is the history half of a SimilarityStore.
type HistoryRecorder interface {
	RecordHistory(ctx context.Context, entry models.HistoryRecord) error
}

// Migrator is implemented by stores that can create their schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"
)

// MemoryStore keeps records in process. It backs local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]models.EmbeddingRecord
	history []models.HistoryRecord
	nextID  int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]models.EmbeddingRecord)}
}

func (s *MemoryStore) GetEmbedding(_ context.Context, eventID int64) (models.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[eventID]
	if !ok {
		return models.EmbeddingRecord{}, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) UpsertEmbedding(_ context.Context, rec models.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = cloneRecord(rec)
	if existing, ok := s.records[rec.EventID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records[rec.EventID] = rec
	return nil
}

func (s *MemoryStore) RecordHistory(_ context.Context, entry models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	entry.EventEmbedding = append([]float32(nil), entry.EventEmbedding...)
	if entry.BookedAt.IsZero() {
		entry.BookedAt = time.Now().UTC()
	}
	s.history = append(s.history, entry)
	return nil
}

// History returns a copy of the booking history in insertion order.
func (s *MemoryStore) History() []models.HistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HistoryRecord(nil), s.history...)
}

// TopKSimilar ranks by cosine similarity; equal scores are ordered by event id.
func (s *MemoryStore) TopKSimilar(_ context.Context, embedding []float32, excludeEventID int64, k int) ([]models.SimilarEvent, error) {
	if k <= 0 {
		return []models.SimilarEvent{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SimilarEvent, 0, len(s.records))
	for id, rec := range s.records {
		if id == excludeEventID {
			continue
		}
		out = append(out, models.SimilarEvent{
			EventSummary: rec.Summary(),
			Similarity:   CosineSimilarity(embedding, rec.Embedding),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// CosineSimilarity returns 1 - cosine distance; zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cloneRecord(rec models.EmbeddingRecord) models.EmbeddingRecord {
	rec.Embedding = append([]float32(nil), rec.Embedding...)
	images := make([]string, len(rec.ImageURLs))
	copy(images, rec.ImageURLs)
	rec.ImageURLs = images
	return rec
}

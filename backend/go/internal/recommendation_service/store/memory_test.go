package store

import (
	"context"
	"testing"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id int64, title string, vec ...float32) models.EmbeddingRecord {
	return models.EmbeddingRecord{EventID: id, Title: title, Embedding: vec, ImageURLs: []string{}}
}

func seed(t *testing.T, s SimilarityStore, recs ...models.EmbeddingRecord) {
	t.Helper()
	for _, r := range recs {
		require.NoError(t, s.UpsertEmbedding(context.Background(), r))
	}
}

func ids(events []models.SimilarEvent) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestMemoryStore_GetEmbeddingNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetEmbedding(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpsertKeepsCreatedAt(t *testing.T) {
	s := NewMemoryStore()
	first := record(5, "Jazz Night", 1, 0)
	first.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, first)

	second := record(5, "Jazz Night (late show)", 0, 1)
	second.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, second)

	got, err := s.GetEmbedding(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night (late show)", got.Title)
	assert.Equal(t, []float32{0, 1}, got.Embedding)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	rec := record(1, "a", 1, 2)
	seed(t, s, rec)
	rec.Embedding[0] = 99

	got, err := s.GetEmbedding(context.Background(), 1)
	require.NoError(t, err)
	got.Embedding[1] = 99

	again, err := s.GetEmbedding(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, again.Embedding)
}

func TestMemoryStore_TopKSimilarOrdersAndExcludes(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s,
		record(5, "Jazz Night", 1, 0, 0),
		record(6, "Blues Evening", 0.9, 0.1, 0),
		record(7, "Soul Revue", 0.7, 0.3, 0),
		record(8, "Funk Party", 0.5, 0.5, 0),
		record(9, "Tech Expo", 0, 0, 1),
	)

	got, err := s.TopKSimilar(context.Background(), []float32{1, 0, 0}, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 7, 8}, ids(got))
	assert.Greater(t, got[0].Similarity, got[1].Similarity)
	assert.Greater(t, got[1].Similarity, got[2].Similarity)
}

func TestMemoryStore_TopKNeverReturnsExcluded(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, record(1, "a", 1, 0), record(2, "b", 1, 0), record(3, "c", 0, 1))

	for k := 0; k <= 5; k++ {
		got, err := s.TopKSimilar(context.Background(), []float32{1, 0}, 1, k)
		require.NoError(t, err)
		assert.NotContains(t, ids(got), int64(1), "k=%d", k)
		assert.LessOrEqual(t, len(got), k)
	}
}

func TestMemoryStore_TiesBreakByEventID(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, record(30, "c", 1, 0), record(10, "a", 1, 0), record(20, "b", 1, 0))

	got, err := s.TopKSimilar(context.Background(), []float32{1, 0}, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids(got))
}

func TestMemoryStore_EmptyStore(t *testing.T) {
	got, err := NewMemoryStore().TopKSimilar(context.Background(), []float32{1}, 1, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryStore_RecordHistory(t *testing.T) {
	s := NewMemoryStore()
	emb := []float32{0.1, 0.2}
	require.NoError(t, s.RecordHistory(context.Background(), models.HistoryRecord{UserID: 1, EventID: 5, EventEmbedding: emb}))
	require.NoError(t, s.RecordHistory(context.Background(), models.HistoryRecord{UserID: 1, EventID: 6}))
	emb[0] = 9

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, int64(1), h[0].ID)
	assert.Equal(t, int64(2), h[1].ID)
	assert.Equal(t, []float32{0.1, 0.2}, h[0].EventEmbedding)
	assert.False(t, h[0].BookedAt.IsZero())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

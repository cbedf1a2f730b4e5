package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/database/milvus"
	"TicketBlitz_Recommendation/backend/go/internal/models"

	"github.com/goccy/go-json"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var milvusOutputFields = []string{
	milvus.FieldEventID, milvus.FieldTitle, milvus.FieldDescription, milvus.FieldCategory,
	milvus.FieldLocation, milvus.FieldPrice, milvus.FieldDate, milvus.FieldImageURLs,
}

// MilvusStore keeps event vectors in Milvus and hands booking history to a HistoryRecorder.
// Ties in similarity come back in engine order.
type MilvusStore struct {
	client    client.Client
	collName  string
	dimension int
	nprobe    int
	history   HistoryRecorder
	timeout   time.Duration
}

// NewMilvusStore creates a new MilvusStore.
func NewMilvusStore(c client.Client, collName string, dimension, nprobe int, history HistoryRecorder, timeout time.Duration) *MilvusStore {
	if nprobe <= 0 {
		nprobe = 10
	}
	return &MilvusStore{
		client:    c,
		collName:  collName,
		dimension: dimension,
		nprobe:    nprobe,
		history:   history,
		timeout:   timeout,
	}
}

func (s *MilvusStore) GetEmbedding(ctx context.Context, eventID int64) (models.EmbeddingRecord, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	fields := append(append([]string{}, milvusOutputFields...), milvus.FieldCreatedAt, milvus.FieldEmbedding)
	rs, err := s.client.Query(ctx, s.collName, nil, fmt.Sprintf("%s == %d", milvus.FieldEventID, eventID), fields,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong))
	if err != nil {
		return models.EmbeddingRecord{}, fmt.Errorf("get embedding %d: %w", eventID, err)
	}
	cols := columnsByName(rs)
	idCol := cols[milvus.FieldEventID]
	if idCol == nil || idCol.Len() == 0 {
		return models.EmbeddingRecord{}, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}

	summary, err := summaryAt(cols, 0)
	if err != nil {
		return models.EmbeddingRecord{}, err
	}
	rec := models.EmbeddingRecord{
		EventID:     summary.ID,
		Title:       summary.Title,
		Description: summary.Description,
		Category:    summary.Category,
		Location:    summary.Location,
		Price:       string(summary.Price),
		Date:        summary.Date.Time,
		ImageURLs:   summary.ImageURLs,
	}
	if c := cols[milvus.FieldCreatedAt]; c != nil {
		ns, _ := c.GetAsInt64(0)
		rec.CreatedAt = time.Unix(0, ns).UTC()
	}
	if vc, ok := cols[milvus.FieldEmbedding].(*entity.ColumnFloatVector); ok && len(vc.Data()) > 0 {
		rec.Embedding = append([]float32(nil), vc.Data()[0]...)
	}
	return rec, nil
}

func (s *MilvusStore) UpsertEmbedding(ctx context.Context, rec models.EmbeddingRecord) error {
	// keep the first created_at
	existing, err := s.GetEmbedding(ctx, rec.EventID)
	switch {
	case err == nil:
		rec.CreatedAt = existing.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return fmt.Errorf("read existing event %d: %w", rec.EventID, err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	images := rec.ImageURLs
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encode image urls: %w", err)
	}
	var dateNanos int64
	if !rec.Date.IsZero() {
		dateNanos = rec.Date.UnixNano()
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.client.Upsert(ctx, s.collName, "",
		entity.NewColumnInt64(milvus.FieldEventID, []int64{rec.EventID}),
		entity.NewColumnVarChar(milvus.FieldTitle, []string{rec.Title}),
		entity.NewColumnVarChar(milvus.FieldDescription, []string{rec.Description}),
		entity.NewColumnVarChar(milvus.FieldCategory, []string{rec.Category}),
		entity.NewColumnVarChar(milvus.FieldLocation, []string{rec.Location}),
		entity.NewColumnVarChar(milvus.FieldPrice, []string{rec.Price}),
		entity.NewColumnInt64(milvus.FieldDate, []int64{dateNanos}),
		entity.NewColumnVarChar(milvus.FieldImageURLs, []string{string(imagesJSON)}),
		entity.NewColumnInt64(milvus.FieldCreatedAt, []int64{rec.CreatedAt.UnixNano()}),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, s.dimension, [][]float32{rec.Embedding}),
	)
	if err != nil {
		return fmt.Errorf("upsert embedding %d: %w", rec.EventID, err)
	}
	return nil
}

func (s *MilvusStore) RecordHistory(ctx context.Context, entry models.HistoryRecord) error {
	return s.history.RecordHistory(ctx, entry)
}

func (s *MilvusStore) TopKSimilar(ctx context.Context, embedding []float32, excludeEventID int64, k int) ([]models.SimilarEvent, error) {
	if k <= 0 {
		return []models.SimilarEvent{}, nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	sp, err := entity.NewIndexIvfFlatSearchParam(s.nprobe)
	if err != nil {
		return nil, err
	}
	results, err := s.client.Search(
		ctx, s.collName, nil,
		fmt.Sprintf("%s != %d", milvus.FieldEventID, excludeEventID),
		milvusOutputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		milvus.FieldEmbedding, entity.COSINE, k, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, fmt.Errorf("top-k similar: %w", err)
	}

	out := make([]models.SimilarEvent, 0, k)
	for _, res := range results {
		if res.Err != nil {
			return nil, fmt.Errorf("top-k similar: %w", res.Err)
		}
		cols := columnsByName(res.Fields)
		for i := 0; i < res.ResultCount && len(out) < k; i++ {
			summary, err := summaryAt(cols, i)
			if err != nil {
				return nil, err
			}
			if summary.ID == excludeEventID {
				continue
			}
			out = append(out, models.SimilarEvent{EventSummary: summary, Similarity: float64(res.Scores[i])})
		}
	}
	return out, nil
}

func columnsByName(cols []entity.Column) map[string]entity.Column {
	m := make(map[string]entity.Column, len(cols))
	for _, c := range cols {
		if c != nil {
			m[c.Name()] = c
		}
	}
	return m
}

func summaryAt(cols map[string]entity.Column, i int) (models.EventSummary, error) {
	str := func(name string) string {
		if c := cols[name]; c != nil {
			v, _ := c.GetAsString(i)
			return v
		}
		return ""
	}
	var summary models.EventSummary
	if c := cols[milvus.FieldEventID]; c != nil {
		id, err := c.GetAsInt64(i)
		if err != nil {
			return summary, fmt.Errorf("read %s: %w", milvus.FieldEventID, err)
		}
		summary.ID = id
	}
	summary.Title = str(milvus.FieldTitle)
	summary.Description = str(milvus.FieldDescription)
	summary.Category = str(milvus.FieldCategory)
	summary.Location = str(milvus.FieldLocation)
	summary.Price = models.OpaqueString(str(milvus.FieldPrice))
	if c := cols[milvus.FieldDate]; c != nil {
		if ns, _ := c.GetAsInt64(i); ns != 0 {
			summary.Date = models.FlexTime{Time: time.Unix(0, ns).UTC()}
		}
	}
	summary.ImageURLs = []string{}
	if raw := str(milvus.FieldImageURLs); raw != "" {
		if err := json.Unmarshal([]byte(raw), &summary.ImageURLs); err != nil {
			return summary, fmt.Errorf("decode image urls for event %d: %w", summary.ID, err)
		}
	}
	return summary, nil
}

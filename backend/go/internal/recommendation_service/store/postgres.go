package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// eventVector maps the event_vectors table.
type eventVector struct {
	EventID     int64           `gorm:"column:event_id;primaryKey;autoIncrement:false"`
	Title       string          `gorm:"column:title"`
	Description string          `gorm:"column:description"`
	Category    string          `gorm:"column:category"`
	Location    string          `gorm:"column:location"`
	Price       string          `gorm:"column:price"`
	Date        *time.Time      `gorm:"column:date"`
	ImageURLs   pq.StringArray  `gorm:"column:image_urls;type:text[]"`
	Embedding   pgvector.Vector `gorm:"column:embedding"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (eventVector) TableName() string { return "event_vectors" }

func newEventVector(rec models.EmbeddingRecord) eventVector {
	images := rec.ImageURLs
	if images == nil {
		images = []string{}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return eventVector{
		EventID:     rec.EventID,
		Title:       rec.Title,
		Description: rec.Description,
		Category:    rec.Category,
		Location:    rec.Location,
		Price:       rec.Price,
		Date:        nullableTime(rec.Date),
		ImageURLs:   pq.StringArray(images),
		Embedding:   pgvector.NewVector(rec.Embedding),
		CreatedAt:   createdAt,
	}
}

func (r eventVector) record() models.EmbeddingRecord {
	images := []string(r.ImageURLs)
	if images == nil {
		images = []string{}
	}
	return models.EmbeddingRecord{
		EventID:     r.EventID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Location:    r.Location,
		Price:       r.Price,
		Date:        derefTime(r.Date),
		ImageURLs:   images,
		Embedding:   r.Embedding.Slice(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// userHistory maps the user_history table.
type userHistory struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         int64           `gorm:"column:user_id"`
	EventID        int64           `gorm:"column:event_id"`
	Username       string          `gorm:"column:username"`
	Email          string          `gorm:"column:email"`
	EventEmbedding pgvector.Vector `gorm:"column:event_embedding"`
	BookedAt       time.Time       `gorm:"column:booked_at"`
}

func (userHistory) TableName() string { return "user_history" }

// similarRow is one row of the topK query.
type similarRow struct {
	EventID     int64          `gorm:"column:event_id"`
	Title       string         `gorm:"column:title"`
	Description string         `gorm:"column:description"`
	Category    string         `gorm:"column:category"`
	Location    string         `gorm:"column:location"`
	Price       string         `gorm:"column:price"`
	Date        *time.Time     `gorm:"column:date"`
	ImageURLs   pq.StringArray `gorm:"column:image_urls"`
	Similarity  float64        `gorm:"column:similarity"`
}

func (r similarRow) similarEvent() models.SimilarEvent {
	return models.SimilarEvent{
		EventSummary: models.EventSummary{
			ID:          r.EventID,
			Title:       r.Title,
			Description: r.Description,
			Category:    r.Category,
			Location:    r.Location,
			Price:       models.OpaqueString(r.Price),
			Date:        models.FlexTime{Time: derefTime(r.Date)},
			ImageURLs:   []string(r.ImageURLs),
		},
		Similarity: r.Similarity,
	}
}

// Similarity is 1 - cosine distance; equal distances order by event_id.
const topKQuery = `SELECT event_id, title, description, category, location, price, date, image_urls,
	1 - (embedding <=> ?) AS similarity
FROM event_vectors
WHERE event_id <> ?
ORDER BY embedding <=> ?, event_id
LIMIT ?`

// PostgresStore is a SimilarityStore on PostgreSQL with pgvector.
type PostgresStore struct {
	db        *gorm.DB
	dimension int
	ivfLists  int
	timeout   time.Duration
}

// NewPostgresStore creates a new PostgresStore. dimension sizes the vector(D) columns.
func NewPostgresStore(db *gorm.DB, dimension, ivfLists int, timeout time.Duration) *PostgresStore {
	if ivfLists <= 0 {
		ivfLists = 100
	}
	return &PostgresStore{db: db, dimension: dimension, ivfLists: ivfLists, timeout: timeout}
}

// Migrate creates the pgvector extension, both tables and their indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS event_vectors (
	event_id    BIGINT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	price       TEXT NOT NULL DEFAULT '',
	date        TIMESTAMPTZ,
	image_urls  TEXT[] NOT NULL DEFAULT '{}',
	embedding   vector(%d) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS event_vectors_embedding_idx
	ON event_vectors USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`, s.ivfLists),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_history (
	id              BIGSERIAL PRIMARY KEY,
	user_id         BIGINT NOT NULL,
	event_id        BIGINT NOT NULL,
	username        TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	event_embedding vector(%d),
	booked_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS user_history_user_booked_idx ON user_history (user_id, booked_at)`,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("migrate similarity store: %w", err)
			}
		}
		return nil
	})
}

// GetEmbedding reads one record by event_id.
func (s *PostgresStore) GetEmbedding(ctx context.Context, eventID int64) (models.EmbeddingRecord, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row eventVector
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.EmbeddingRecord{}, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	if err != nil {
		return models.EmbeddingRecord{}, fmt.Errorf("get embedding %d: %w", eventID, err)
	}
	return row.record(), nil
}

// UpsertEmbedding inserts or replaces a record, keeping created_at on conflict.
func (s *PostgresStore) UpsertEmbedding(ctx context.Context, rec models.EmbeddingRecord) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	row := newEventVector(rec)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "category", "location", "price", "date", "image_urls", "embedding",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert embedding %d: %w", rec.EventID, err)
	}
	return nil
}

// RecordHistory appends one booking.
func (s *PostgresStore) RecordHistory(ctx context.Context, entry models.HistoryRecord) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	bookedAt := entry.BookedAt
	if bookedAt.IsZero() {
		bookedAt = time.Now().UTC()
	}
	row := userHistory{
		UserID:         entry.UserID,
		EventID:        entry.EventID,
		Username:       entry.Username,
		Email:          entry.Email,
		EventEmbedding: pgvector.NewVector(entry.EventEmbedding),
		BookedAt:       bookedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record history for user %d: %w", entry.UserID, err)
	}
	return nil
}

// TopKSimilar returns the k nearest events by cosine distance.
func (s *PostgresStore) TopKSimilar(ctx context.Context, embedding []float32, excludeEventID int64, k int) ([]models.SimilarEvent, error) {
	if k <= 0 {
		return []models.SimilarEvent{}, nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	vec := pgvector.NewVector(embedding)
	var rows []similarRow
	if err := s.db.WithContext(ctx).Raw(topKQuery, vec, excludeEventID, vec, k).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("top-k similar: %w", err)
	}

	out := make([]models.SimilarEvent, 0, len(rows))
	for _, r := range rows {
		if r.EventID == excludeEventID {
			continue
		}
		out = append(out, r.similarEvent())
	}
	return out, nil
}

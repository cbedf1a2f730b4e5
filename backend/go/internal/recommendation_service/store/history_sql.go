package store

import (
	"context"
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// historyRow is a booking in MySQL. The embedding is stored as JSON.
type historyRow struct {
	ID             int64                        `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         int64                        `gorm:"column:user_id;not null;index:idx_user_history_user_booked,priority:1"`
	EventID        int64                        `gorm:"column:event_id;not null"`
	Username       string                       `gorm:"column:username;size:255"`
	Email          string                       `gorm:"column:email;size:320"`
	EventEmbedding datatypes.JSONType[[]float32] `gorm:"column:event_embedding"`
	BookedAt       time.Time                    `gorm:"column:booked_at;not null;index:idx_user_history_user_booked,priority:2"`
}

func (historyRow) TableName() string { return "user_history" }

// SQLHistoryStore writes booking history to a relational database (MySQL for the milvus backend).
type SQLHistoryStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewSQLHistoryStore creates a new SQLHistoryStore.
func NewSQLHistoryStore(db *gorm.DB, timeout time.Duration) *SQLHistoryStore {
	return &SQLHistoryStore{db: db, timeout: timeout}
}

// Migrate creates the history table.
func (s *SQLHistoryStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&historyRow{}); err != nil {
		return fmt.Errorf("migrate user_history: %w", err)
	}
	return nil
}

// RecordHistory appends one booking.
func (s *SQLHistoryStore) RecordHistory(ctx context.Context, entry models.HistoryRecord) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	bookedAt := entry.BookedAt
	if bookedAt.IsZero() {
		bookedAt = time.Now().UTC()
	}
	row := historyRow{
		UserID:         entry.UserID,
		EventID:        entry.EventID,
		Username:       entry.Username,
		Email:          entry.Email,
		EventEmbedding: datatypes.NewJSONType(entry.EventEmbedding),
		BookedAt:       bookedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record history for user %d: %w", entry.UserID, err)
	}
	return nil
}

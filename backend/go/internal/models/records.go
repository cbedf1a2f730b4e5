package models

import "time"

// EmbeddingRecord 是相似度存储中按事件 id 唯一的一行。Embedding 的长度恒为配置的维度 D。
type EmbeddingRecord struct {
	EventID     int64
	Title       string
	Description string
	Category    string
	Location    string
	Price       string
	Date        time.Time
	ImageURLs   []string
	Embedding   []float32
	CreatedAt   time.Time
}

// Summary 返回记录对应的事件摘要。
func (r EmbeddingRecord) Summary() EventSummary {
	return EventSummary{
		ID:          r.EventID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Location:    r.Location,
		Price:       OpaqueString(r.Price),
		Date:        FlexTime{Time: r.Date},
		ImageURLs:   r.ImageURLs,
	}
}

// HistoryRecord 是一次预订触发写入的只追加历史记录。
type HistoryRecord struct {
	ID             int64
	UserID         int64
	EventID        int64
	Username       string
	Email          string
	EventEmbedding []float32
	BookedAt       time.Time
}

package models

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// EventCreated 是 "event-created" 主题上的入站消息。
type EventCreated struct {
	ID          int64        `json:"id" validate:"gt=0"`
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Location    string       `json:"location"`
	Price       OpaqueString `json:"price"`
	Date        FlexTime     `json:"date"`
	ImageURLs   []string     `json:"imageUrls"`
}

// EmbeddingText 返回用于生成向量的输入文本。
func (e EventCreated) EmbeddingText() string {
	return fmt.Sprintf("%s. %s. Category: %s", e.Title, e.Description, e.Category)
}

// ToRecord 用生成好的向量构造 EmbeddingRecord。
func (e EventCreated) ToRecord(embedding []float32, createdAt time.Time) EmbeddingRecord {
	images := e.ImageURLs
	if images == nil {
		images = []string{}
	}
	return EmbeddingRecord{
		EventID:     e.ID,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Location:    e.Location,
		Price:       string(e.Price),
		Date:        e.Date.Time,
		ImageURLs:   images,
		Embedding:   embedding,
		CreatedAt:   createdAt.UTC(),
	}
}

// EventSummary 是事件的只读摘要，来源可以是相似度存储、缓存或外部事件服务。
type EventSummary struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	Location    string       `json:"location"`
	Price       OpaqueString `json:"price,omitempty"`
	Date        FlexTime     `json:"date"`
	ImageURLs   []string     `json:"imageUrls,omitempty"`
}

// SimilarEvent 是 topK 查询返回的一行：事件摘要加上相似度分数。
type SimilarEvent struct {
	EventSummary
	Similarity float64 `json:"similarity"`
}

// OpaqueString 保存价格等不做解析的字段。
// JSON 字符串原样保存；JSON 数字保存其字面文本，例如 25.0 保存为 "25.0"。
type OpaqueString string

// UnmarshalJSON 实现 json.Unmarshaler。
func (s *OpaqueString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*s = OpaqueString(v)
		return nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return fmt.Errorf("opaque string: unsupported JSON value %s", string(trimmed))
	}
	*s = OpaqueString(trimmed)
	return nil
}

// FlexTime 接受 ISO-8601 字符串或结构化时间数组 [year, month, day, hour, minute, second, nano]。
// 没有时区信息的值按 UTC 处理。
type FlexTime struct {
	time.Time
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseFlexTime 解析 ISO-8601 字符串。
func ParseFlexTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// TimeFromTuple 把结构化时间数组转换为 time.Time，至少需要年月日。
func TimeFromTuple(parts []int64) (time.Time, error) {
	if len(parts) < 3 || len(parts) > 7 {
		return time.Time{}, fmt.Errorf("date tuple must have 3 to 7 elements, got %d", len(parts))
	}
	var p [7]int64
	copy(p[:], parts)
	if p[1] < 1 || p[1] > 12 || p[2] < 1 || p[2] > 31 {
		return time.Time{}, fmt.Errorf("date tuple %v out of range", parts)
	}
	t := time.Date(int(p[0]), time.Month(p[1]), int(p[2]), int(p[3]), int(p[4]), int(p[5]), int(p[6]), time.UTC)
	if t.Day() != int(p[2]) {
		return time.Time{}, fmt.Errorf("date tuple %v is not a valid date", parts)
	}
	return t, nil
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (f *FlexTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			f.Time = time.Time{}
			return nil
		}
		t, err := ParseFlexTime(s)
		if err != nil {
			return err
		}
		f.Time = t
		return nil
	case '[':
		var parts []int64
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return fmt.Errorf("date tuple: %w", err)
		}
		t, err := TimeFromTuple(parts)
		if err != nil {
			return err
		}
		f.Time = t
		return nil
	default:
		return fmt.Errorf("unsupported date value %s", string(trimmed))
	}
}

// MarshalJSON 输出 RFC3339 字符串，零值输出 null。
func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Time.Format(time.RFC3339Nano))
}

// Display 返回用于邮件正文的日期文本，零值返回 fallback。
func (f FlexTime) Display(fallback string) string {
	if f.IsZero() {
		return fallback
	}
	return f.Time.Format("2006-01-02 15:04")
}

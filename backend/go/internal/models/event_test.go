package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCreated_DecodeISODate(t *testing.T) {
	raw := `{"id":5,"title":"Jazz Night","description":"Smooth","category":"Music","location":"Hall A","price":"25.00","date":"2025-06-01T19:30:00Z","imageUrls":["a.png"]}`

	var evt EventCreated
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))

	assert.Equal(t, int64(5), evt.ID)
	assert.Equal(t, OpaqueString("25.00"), evt.Price)
	assert.Equal(t, time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC), evt.Date.Time.UTC())
	assert.Equal(t, []string{"a.png"}, evt.ImageURLs)
}

func TestEventCreated_TupleAndStringDatesAgree(t *testing.T) {
	var fromTuple, fromString EventCreated
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"x","date":[2025,6,1,19,30]}`), &fromTuple))
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"x","date":"2025-06-01T19:30:00"}`), &fromString))

	assert.True(t, fromTuple.Date.Equal(fromString.Date.Time))
}

func TestFlexTime_Variants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"offset", `"2025-06-01T21:30:00+02:00"`, time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)},
		{"fractional", `"2025-06-01T19:30:00.250Z"`, time.Date(2025, 6, 1, 19, 30, 0, 250000000, time.UTC)},
		{"space separated", `"2025-06-01 19:30:00"`, time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)},
		{"date only", `"2025-06-01"`, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"tuple with nanos", `[2025,6,1,19,30,5,1000]`, time.Date(2025, 6, 1, 19, 30, 5, 1000, time.UTC)},
		{"tuple date only", `[2025,6,1]`, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexTime
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &f))
			assert.True(t, tt.want.Equal(f.Time), "got %s", f.Time)
		})
	}
}

func TestFlexTime_Invalid(t *testing.T) {
	for _, raw := range []string{`"next tuesday"`, `[2025,13,1]`, `[2025,2,30]`, `[2025]`, `true`} {
		var f FlexTime
		assert.Error(t, json.Unmarshal([]byte(raw), &f), raw)
	}
}

func TestFlexTime_NullIsZero(t *testing.T) {
	var f FlexTime
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.True(t, f.IsZero())
	assert.Equal(t, "TBA", f.Display("TBA"))
}

func TestOpaqueString_NumberKeepsLiteral(t *testing.T) {
	var p struct {
		Price OpaqueString `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 25.0}`), &p))
	assert.Equal(t, OpaqueString("25.0"), p.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price": 40}`), &p))
	assert.Equal(t, OpaqueString("40"), p.Price)
}

func TestEventCreated_EmbeddingText(t *testing.T) {
	evt := EventCreated{Title: "Jazz Night", Description: "Smooth tunes", Category: "Music"}
	assert.Equal(t, "Jazz Night. Smooth tunes. Category: Music", evt.EmbeddingText())
}

func TestEventCreated_ToRecordDefaultsImages(t *testing.T) {
	evt := EventCreated{ID: 3, Title: "Expo", Price: "10"}
	rec := evt.ToRecord([]float32{1, 2}, time.Unix(0, 0))

	assert.Equal(t, int64(3), rec.EventID)
	assert.Equal(t, "10", rec.Price)
	assert.NotNil(t, rec.ImageURLs)
	assert.Empty(t, rec.ImageURLs)
	assert.Equal(t, int64(3), rec.Summary().ID)
}

func TestValidate(t *testing.T) {
	ok := RecommendationRequest{UserID: 1, EventID: 5, UserEmail: "a@b.com", Username: "ann"}
	assert.NoError(t, Validate(ok))

	bad := ok
	bad.UserEmail = "not-an-email"
	assert.Error(t, Validate(bad))

	assert.Error(t, Validate(EventCreated{Title: "no id"}))
}

func TestGenerateContentResponse_Text(t *testing.T) {
	resp := &GenerateContentResponse{Content: []Content{{Parts: []*Part{{Text: "hello "}, {Text: "world"}}}}}
	assert.Equal(t, "hello world", resp.Text())
	assert.Equal(t, "", (*GenerateContentResponse)(nil).Text())
	assert.Equal(t, "prompt", NewTextRequest("prompt", 0.7).Prompt())
}

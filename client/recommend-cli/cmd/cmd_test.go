package cmd

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFlagsMessage(t *testing.T) {
	f := eventFlags{id: 7, title: "Jazz Night", category: "Music", price: "25.00", date: "2025-06-01T19:30:00"}
	evt, err := f.message()
	require.NoError(t, err)
	assert.Equal(t, int64(7), evt.ID)
	assert.Equal(t, "2025-06-01T19:30:00Z", evt.Date)

	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"title":"Jazz Night","description":"","category":"Music","location":"","price":"25.00","date":"2025-06-01T19:30:00Z","imageUrls":[]}`, string(raw))

	_, err = eventFlags{id: 7, title: "x", date: "someday"}.message()
	assert.Error(t, err)

	_, err = eventFlags{title: "no id"}.message()
	assert.Error(t, err)
}

func TestRequestFlagsMessage(t *testing.T) {
	req, err := requestFlags{userID: 1, eventID: 5, email: "ann@example.com", username: "ann"}.message()
	require.NoError(t, err)
	assert.Equal(t, int64(5), req.EventID)

	_, err = requestFlags{userID: 1, eventID: 5, email: "ann", username: "ann"}.message()
	assert.Error(t, err)
}

func TestFormatDispatch(t *testing.T) {
	out := formatDispatch(kafka.Message{Offset: 3, Value: []byte(`{"recipientEmail":"ann@example.com","subject":"Hi","body":"Body"}`)})
	assert.Equal(t, "[offset 3] To: ann@example.com\nSubject: Hi\n\nBody\n", out)

	assert.Contains(t, formatDispatch(kafka.Message{Offset: 4, Value: []byte("{")}), "undecodable")
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["publish"])
	assert.True(t, names["tail"])
	assert.Len(t, publishCmd.Commands(), 2)
}

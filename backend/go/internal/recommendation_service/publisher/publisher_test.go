package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/internal/models"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs     []kafka.Message
	err      error
	deadline bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

var sample = models.RecommendationMessage{
	RecipientEmail: "ann@example.com",
	Subject:        "You might also like these events!",
	Body:           "Hi ann",
}

func TestKafkaDispatcher_Dispatch(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewKafkaDispatcher(w, time.Second).Dispatch(context.Background(), sample))

	require.Len(t, w.msgs, 1)
	assert.True(t, w.deadline)
	assert.Equal(t, "ann@example.com", string(w.msgs[0].Key))
	assert.JSONEq(t,
		`{"recipientEmail":"ann@example.com","subject":"You might also like these events!","body":"Hi ann"}`,
		string(w.msgs[0].Value))
}

func TestKafkaDispatcher_Failure(t *testing.T) {
	boom := errors.New("leader not available")
	err := NewKafkaDispatcher(&fakeWriter{err: boom}, time.Second).Dispatch(context.Background(), sample)

	assert.ErrorIs(t, err, ErrDispatch)
	assert.ErrorIs(t, err, boom)
}

func startNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready within timeout")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func TestNATSDispatcher_PublishesToStream(t *testing.T) {
	nc, err := nats.Connect(startNATS(t))
	require.NoError(t, err)
	defer nc.Close()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := config.NATSConfig{Stream: "EMAIL", Subject: "ticketblitz.email.dispatch"}
	require.NoError(t, EnsureStream(ctx, js, cfg))
	require.NoError(t, EnsureStream(ctx, js, cfg), "existing stream is left alone")

	require.NoError(t, NewNATSDispatcher(js, cfg.Subject, 5*time.Second).Dispatch(ctx, sample))

	stream, err := js.Stream(ctx, cfg.Stream)
	require.NoError(t, err)
	raw, err := stream.GetLastMsgForSubject(ctx, cfg.Subject)
	require.NoError(t, err)

	var got models.RecommendationMessage
	require.NoError(t, json.Unmarshal(raw.Data, &got))
	assert.Equal(t, sample, got)
}

func TestNATSDispatcher_NoStream(t *testing.T) {
	nc, err := nats.Connect(startNATS(t))
	require.NoError(t, err)
	defer nc.Close()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	err = NewNATSDispatcher(js, "nobody.listens", 2*time.Second).Dispatch(context.Background(), sample)
	assert.ErrorIs(t, err, ErrDispatch)
}

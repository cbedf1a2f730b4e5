package rotation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name string
	err  error
}

func keyword(err error) Kind {
	if strings.Contains(err.Error(), "API_KEY_INVALID") {
		return KindAuth
	}
	return KindProvider
}

func TestTry_FirstSuccessStops(t *testing.T) {
	var calls []string
	pool := New("embedding", []Credential[fakeClient]{
		{Client: fakeClient{name: "a", err: errors.New("API_KEY_INVALID")}},
		{Client: fakeClient{name: "b"}},
		{Client: fakeClient{name: "c"}},
	}, WithClassifier(keyword))

	var used string
	err := pool.Try(context.Background(), func(_ context.Context, c fakeClient) error {
		calls = append(calls, c.name)
		if c.err != nil {
			return c.err
		}
		used = c.name
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "b", used)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestTry_AllFailCarriesLastError(t *testing.T) {
	var observed []string
	var kinds []Kind
	last := errors.New("503 unavailable")
	pool := New("generation", []Credential[fakeClient]{
		{Client: fakeClient{err: errors.New("API_KEY_INVALID")}},
		{Client: fakeClient{err: last}},
	}, WithClassifier(keyword), WithObserver(func(_, label string, kind Kind) {
		observed = append(observed, label)
		kinds = append(kinds, kind)
	}))

	calls := 0
	err := pool.Try(context.Background(), func(_ context.Context, c fakeClient) error {
		calls++
		return c.err
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 2, calls, "each credential is tried exactly once")
	assert.Equal(t, []string{"Key 1", "Key 2"}, observed)
	assert.Equal(t, []Kind{KindAuth, KindProvider}, kinds)
}

func TestTry_EmptyPool(t *testing.T) {
	pool := New[fakeClient]("empty", nil)
	err := pool.Try(context.Background(), func(context.Context, fakeClient) error { return nil })
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
}

func TestTry_PerAttemptTimeout(t *testing.T) {
	pool := New("slow", []Credential[fakeClient]{{Client: fakeClient{name: "slow"}}, {Client: fakeClient{name: "fast"}}},
		WithTimeout(20*time.Millisecond))

	var used string
	err := pool.Try(context.Background(), func(ctx context.Context, c fakeClient) error {
		if c.name == "slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		used = c.name
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "fast", used)
}

func TestTry_StopsWhenParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := New("cancel", []Credential[fakeClient]{{}, {}, {}})

	calls := 0
	err := pool.Try(ctx, func(context.Context, fakeClient) error {
		calls++
		cancel()
		return errors.New("failed")
	})

	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
	assert.Equal(t, 1, calls)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "auth_failure", KindAuth.String())
	assert.Equal(t, "provider_failure", KindProvider.String())
}

type closingClient struct {
	closed *int
	err    error
}

func (c closingClient) Close() error {
	*c.closed++
	return c.err
}

func TestClose_ClosesEveryCloser(t *testing.T) {
	var closed int
	pool := New("generation", []Credential[closingClient]{
		{Client: closingClient{closed: &closed}},
		{Client: closingClient{closed: &closed, err: errors.New("already closed")}},
	})

	err := pool.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Key 2: already closed")
	assert.Equal(t, 2, closed)

	plain := New("embedding", []Credential[fakeClient]{{Client: fakeClient{name: "a"}}})
	assert.NoError(t, plain.Close())
}

package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fail() (interface{}, error) { return nil, errors.New("boom") }
func ok() (interface{}, error) { return "ok", nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	cb := New(2, 1, time.Hour, WithName("events"), WithStateChange(func(name string, _, to State) {
		assert.Equal(t, "events", name)
		transitions = append(transitions, to)
	}))

	_, err := cb.Execute(fail)
	require.Error(t, err)
	assert.Equal(t, Closed, cb.State())

	_, err = cb.Execute(fail)
	require.Error(t, err)
	assert.Equal(t, Open, cb.State())

	_, err = cb.Execute(ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, []State{Open}, transitions)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New(1, 1, 20*time.Millisecond)

	_, _ = cb.Execute(fail)
	require.Equal(t, Open, cb.State())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, HalfOpen, cb.State())

	res, err := cb.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, Closed, cb.State())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Hour)

	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)
	assert.Equal(t, Closed, cb.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Half-Open", HalfOpen.String())
	assert.Equal(t, "Unknown", State(9).String())
}

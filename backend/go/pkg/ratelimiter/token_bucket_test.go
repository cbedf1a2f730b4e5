package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tb := NewTokenBucket(2, 3, WithClock(clock.now))

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "burst request %d", i)
	}
	assert.False(t, tb.Allow())

	clock.advance(500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clock.advance(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow())
	}
	assert.False(t, tb.Allow(), "refill is capped at capacity")
}

func TestNew_DisabledIsUnlimited(t *testing.T) {
	assert.IsType(t, Unlimited{}, New(0, 10))
	assert.IsType(t, Unlimited{}, New(1, 0))
	assert.IsType(t, &TokenBucket{}, New(1, 1))
	assert.True(t, Unlimited{}.Allow())
}

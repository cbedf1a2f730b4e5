package ratelimiter

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket refills at a fixed rate up to capacity and spends one token per request.
// A full bucket allows a burst of capacity requests.
type TokenBucket struct {
	bucket *rate.Limiter
	now    func() time.Time
}

// Option customizes a TokenBucket.
type Option func(*TokenBucket)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(tb *TokenBucket) { tb.now = now }
}

// NewTokenBucket creates a full bucket refilled perSecond tokens per second.
func NewTokenBucket(perSecond float64, capacity int, opts ...Option) *TokenBucket {
	tb := &TokenBucket{bucket: rate.NewLimiter(rate.Limit(perSecond), capacity), now: time.Now}
	for _, opt := range opts {
		opt(tb)
	}
	return tb
}

// New returns a TokenBucket, or Unlimited when perSecond or capacity is not positive.
func New(perSecond float64, capacity int, opts ...Option) RateLimiter {
	if perSecond <= 0 || capacity <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(perSecond, capacity, opts...)
}

func (tb *TokenBucket) Allow() bool {
	return tb.bucket.AllowN(tb.now(), 1)
}

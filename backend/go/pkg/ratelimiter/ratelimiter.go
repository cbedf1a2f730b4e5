// Package ratelimiter provides a non-blocking request gate.
package ratelimiter

// RateLimiter decides whether one more request may go out right now.
// It never blocks; callers treat a refusal as an immediate failure.
type RateLimiter interface {
	Allow() bool
}

// Unlimited allows every request.
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

// Package tier implements the ordered content-generation fallback chain.
package tier

import (
	"context"
	"errors"
	"fmt"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"
)

// ErrTierFailed is wrapped by every tier failure.
var ErrTierFailed = errors.New("tier failed")

// Tier names, as reported in logs and metrics.
const (
	NameAI       = "ai"
	NameCache    = "cache"
	NameExternal = "external_service"
	NameStatic   = "static"
)

// Input is what every tier sees for one booking trigger.
type Input struct {
	Username string
	Booked   models.EventSummary
	Similar  []models.SimilarEvent
	EventID  int64
}

// Content is a finished message without its recipient.
type Content struct {
	Subject string
	Body    string
}

// Strategy is one tier of the chain.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, in Input) (Content, error)
}

// Unconditional is a tier that cannot fail. It always closes the chain.
type Unconditional interface {
	Name() string
	Render(in Input) Content
}

// Result is the chain output together with the tier that produced it.
type Result struct {
	Content
	Tier string
}

// Observer is notified after every tier attempt; err is nil on success.
type Observer func(tier string, err error)

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithLogger sets the chain logger.
func WithLogger(l *logger.Logger) ChainOption {
	return func(c *Chain) { c.log = l }
}

// WithObserver registers a callback for tier outcomes.
func WithObserver(fn Observer) ChainOption {
	return func(c *Chain) { c.observe = fn }
}

// Chain tries its tiers strictly in order and returns the first success.
// When every fallible tier fails the final tier renders the message.
type Chain struct {
	tiers   []Strategy
	final   Unconditional
	log     *logger.Logger
	observe Observer
}

// NewChain builds a chain from fallible tiers, in order, closed by final.
func NewChain(tiers []Strategy, final Unconditional, opts ...ChainOption) *Chain {
	c := &Chain{
		tiers: append([]Strategy(nil), tiers...),
		final: final,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.New("tier-chain", "", "")
	}
	return c
}

// Tiers returns the tier names in invocation order, final tier included.
func (c *Chain) Tiers() []string {
	names := make([]string, 0, len(c.tiers)+1)
	for _, t := range c.tiers {
		names = append(names, t.Name())
	}
	return append(names, c.final.Name())
}

// Generate never fails. Tier errors are logged and absorbed.
func (c *Chain) Generate(ctx context.Context, in Input) Result {
	return c.GenerateWithLogger(ctx, in, c.log)
}

// GenerateWithLogger is Generate with a per-call logger, typically carrying a trace id.
func (c *Chain) GenerateWithLogger(ctx context.Context, in Input, log *logger.Logger) Result {
	for _, t := range c.tiers {
		if ctx.Err() != nil {
			// a dead context fails every remaining fallible tier
			break
		}
		content, err := t.Attempt(ctx, in)
		if c.observe != nil {
			c.observe(t.Name(), err)
		}
		if err == nil {
			log.WithField("tier", t.Name()).Info("recommendation content generated")
			return Result{Content: content, Tier: t.Name()}
		}
		log.WithField("tier", t.Name()).
			WithError(models.NewErrorInfo(err, "tier_failed")).
			Warn(fmt.Sprintf("tier %s failed, falling through", t.Name()))
	}

	content := c.final.Render(in)
	if c.observe != nil {
		c.observe(c.final.Name(), nil)
	}
	log.WithField("tier", c.final.Name()).Warn("all upstream tiers failed, using static fallback")
	return Result{Content: content, Tier: c.final.Name()}
}

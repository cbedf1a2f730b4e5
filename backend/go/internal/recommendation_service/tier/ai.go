package tier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"TicketBlitz_Recommendation/backend/go/internal/llm"
	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/pkg/ratelimiter"
	"TicketBlitz_Recommendation/backend/go/pkg/rotation"
)

var (
	errEmptyCompletion = errors.New("model returned empty text")
	errRateLimited     = errors.New("generation rate limit reached")
)

// AITier asks a chat model for a personalised body, rotating over the generation credentials.
type AITier struct {
	pool        *rotation.Pool[llm.LLM]
	brand       string
	temperature float32
	limiter     ratelimiter.RateLimiter
}

// AIOption configures an AITier.
type AIOption func(*AITier)

// WithRateLimiter gates every attempt. A refused attempt fails the tier without calling any model.
func WithRateLimiter(l ratelimiter.RateLimiter) AIOption {
	return func(t *AITier) { t.limiter = l }
}

// NewAITier creates the AI tier. The pool is separate from the embedding credentials.
func NewAITier(pool *rotation.Pool[llm.LLM], brand string, temperature float32, opts ...AIOption) *AITier {
	t := &AITier{pool: pool, brand: brand, temperature: temperature, limiter: ratelimiter.Unlimited{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *AITier) Name() string { return NameAI }

func (t *AITier) Attempt(ctx context.Context, in Input) (Content, error) {
	if !t.limiter.Allow() {
		return Content{}, fmt.Errorf("%w: %s: %w", ErrTierFailed, NameAI, errRateLimited)
	}
	req := models.NewTextRequest(AIPrompt(in.Username, in.Booked, in.Similar, t.brand), t.temperature)

	var text string
	err := t.pool.Try(ctx, func(ctx context.Context, model llm.LLM) error {
		resp, err := model.GenerateContent(ctx, req)
		if err != nil {
			return err
		}
		out := strings.TrimSpace(resp.Text())
		if out == "" {
			return errEmptyCompletion
		}
		text = out
		return nil
	})
	if err != nil {
		return Content{}, fmt.Errorf("%w: %s: %w", ErrTierFailed, NameAI, err)
	}
	return Content{Subject: SubjectAI, Body: WrapAIText(in.Username, text, t.brand)}, nil
}

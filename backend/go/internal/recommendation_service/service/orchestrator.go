package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/publisher"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/store"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/tier"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// Stage is a state of the recommendation state machine.
type Stage string

const (
	StageFetchEmbedding   Stage = "fetch_embedding"
	StageRecordHistory    Stage = "record_history"
	StageSimilaritySearch Stage = "similarity_search"
	StageGenerateContent  Stage = "generate_content"
	StageDispatch         Stage = "dispatch"
	StageDone             Stage = "done"
	StageAborted          Stage = "aborted"
)

// ContentGenerator is the tier chain as seen by the orchestrator. It never fails.
type ContentGenerator interface {
	GenerateWithLogger(ctx context.Context, in tier.Input, log *logger.Logger) tier.Result
}

// Outcome describes how one booking trigger ended. On error, Stage is the stage that failed.
type Outcome struct {
	TraceID string
	Stage   Stage
	Tier    string
	Similar []models.SimilarEvent
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithStageObserver is called once per trigger with the final stage.
func WithStageObserver(fn func(stage string, err error)) OrchestratorOption {
	return func(o *Orchestrator) { o.observe = fn }
}

// WithClock replaces time.Now for booked_at timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator drives one booking trigger through
// FetchEmbedding -> RecordHistory -> SimilaritySearch -> GenerateContent -> Dispatch -> Done.
// Nothing is retried.
type Orchestrator struct {
	store      store.SimilarityStore
	chain      ContentGenerator
	dispatcher publisher.Dispatcher
	topK       int
	log        *logger.Logger
	observe    func(stage string, err error)
	now        func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(st store.SimilarityStore, chain ContentGenerator, dispatcher publisher.Dispatcher, topK int, log *logger.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:      st,
		chain:      chain,
		dispatcher: dispatcher,
		topK:       topK,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle runs the state machine for one trigger. A missing embedding aborts the trigger
// without error; store and dispatch failures are returned wrapped with the stage name.
func (o *Orchestrator) Handle(ctx context.Context, req models.RecommendationRequest) (out Outcome, err error) {
	out.TraceID = uuid.New().String()
	log := o.log.WithTrace(out.TraceID).
		WithUser(strconv.FormatInt(req.UserID, 10)).
		WithField("event_id", req.EventID)

	defer func() {
		if o.observe != nil {
			o.observe(string(out.Stage), err)
		}
	}()

	out.Stage = StageFetchEmbedding
	booked, err := o.store.GetEmbedding(ctx, req.EventID)
	if errors.Is(err, store.ErrNotFound) {
		out.Stage = StageAborted
		log.Warn("no embedding for booked event, skipping recommendation")
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("fetch embedding: %w", err)
	}

	out.Stage = StageRecordHistory
	err = o.store.RecordHistory(ctx, models.HistoryRecord{
		UserID:         req.UserID,
		EventID:        req.EventID,
		Username:       req.Username,
		Email:          req.UserEmail,
		EventEmbedding: booked.Embedding,
		BookedAt:       o.now().UTC(),
	})
	if err != nil {
		return out, fmt.Errorf("record history: %w", err)
	}

	out.Stage = StageSimilaritySearch
	similar, err := o.store.TopKSimilar(ctx, booked.Embedding, req.EventID, o.topK)
	if err != nil {
		return out, fmt.Errorf("similarity search: %w", err)
	}
	if similar == nil {
		similar = []models.SimilarEvent{}
	}
	out.Similar = similar
	log.WithField("similar_count", len(similar)).Debug("similar events found")

	out.Stage = StageGenerateContent
	result := o.chain.GenerateWithLogger(ctx, tier.Input{
		Username: req.Username,
		Booked:   booked.Summary(),
		Similar:  similar,
		EventID:  req.EventID,
	}, log)
	out.Tier = result.Tier

	out.Stage = StageDispatch
	err = o.dispatcher.Dispatch(ctx, models.RecommendationMessage{
		RecipientEmail: req.UserEmail,
		Subject:        result.Subject,
		Body:           result.Body,
	})
	if err != nil {
		return out, fmt.Errorf("dispatch: %w", err)
	}

	out.Stage = StageDone
	log.WithField("tier", out.Tier).Info("recommendation dispatched")
	return out, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	kafkadb "TicketBlitz_Recommendation/backend/go/internal/database/kafka"
	"TicketBlitz_Recommendation/backend/go/internal/database/milvus"
	"TicketBlitz_Recommendation/backend/go/internal/database/mysql"
	"TicketBlitz_Recommendation/backend/go/internal/database/postgres"
	redisdb "TicketBlitz_Recommendation/backend/go/internal/database/redis"
	"TicketBlitz_Recommendation/backend/go/internal/discovery/etcd"
	"TicketBlitz_Recommendation/backend/go/internal/embedding"
	"TicketBlitz_Recommendation/backend/go/internal/llm"
	"TicketBlitz_Recommendation/backend/go/internal/metrics"
	"TicketBlitz_Recommendation/backend/go/internal/models"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/client"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/consumer"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/publisher"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/service"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/store"
	"TicketBlitz_Recommendation/backend/go/internal/recommendation_service/tier"
	"TicketBlitz_Recommendation/backend/go/internal/supervisor"
	"TicketBlitz_Recommendation/backend/go/pkg/circuitbreaker"
	httpx "TicketBlitz_Recommendation/backend/go/pkg/http"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"
	"TicketBlitz_Recommendation/backend/go/pkg/ratelimiter"
	"TicketBlitz_Recommendation/backend/go/pkg/rotation"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultConfigPath = "backend/go/configs/recommendation_service.yaml"

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	serviceLogger := logger.New("RecommendationService", "", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, serviceLogger); err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "startup")).Fatal("Recommendation service failed")
	}
	serviceLogger.Info("Recommendation service stopped")
}

// closers closes resources in reverse order of registration.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) closeAll(log *logger.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.WithError(models.NewErrorInfo(err, "shutdown")).Error("error closing resource")
		}
	}
}

func run(ctx context.Context, cfg *config.AppConfig, serviceLogger *logger.Logger) error {
	var cleanup closers
	defer cleanup.closeAll(serviceLogger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if cfg.Kafka.AutoCreate {
		if err := kafkadb.EnsureTopics(ctx, cfg.Kafka); err != nil {
			return fmt.Errorf("ensure kafka topics: %w", err)
		}
	}

	st, err := buildStore(ctx, cfg, &cleanup)
	if err != nil {
		return err
	}
	serviceLogger.WithField("backend", cfg.Store.Backend).Info("Similarity store ready")

	embedder, err := embedding.NewRotatingFromConfig(cfg.Embedding,
		rotation.WithLogger(serviceLogger),
		rotation.WithObserver(m.ObserveCredential))
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	cleanup.add(embedder.Close)

	pool, err := buildGenerationPool(cfg.Generation, serviceLogger, m)
	if err != nil {
		return err
	}
	cleanup.add(pool.Close)

	chain, err := buildChain(ctx, cfg, pool, serviceLogger, m, &cleanup)
	if err != nil {
		return err
	}
	serviceLogger.WithPayload(map[string]interface{}{"tiers": chain.Tiers()}).Info("Content tier chain ready")

	dispatcher, err := buildDispatcher(ctx, cfg, &cleanup)
	if err != nil {
		return err
	}

	pipeline := service.NewIngestionPipeline(embedder, st, serviceLogger, service.WithIngestObserver(m.ObserveIngest))
	orchestrator := service.NewOrchestrator(st, chain, dispatcher, cfg.Recommendation.TopK, serviceLogger,
		service.WithStageObserver(func(stage string, err error) {
			m.ObserveRecommendation(stage, err)
			if err != nil && stage == string(service.StageDispatch) {
				m.ObserveDispatchFailure()
			}
		}))

	ingestReader := kafkadb.NewReader(cfg.Kafka, cfg.Kafka.Topics.EventsCreated, cfg.Kafka.IngestionGroupID())
	recoReader := kafkadb.NewReader(cfg.Kafka, cfg.Kafka.Topics.RecommendationRequest, cfg.Kafka.RecommendationGroupID())
	ingestLoop := consumer.NewLoop("event-ingestion", ingestReader, consumer.IngestionHandler(pipeline), serviceLogger,
		consumer.WithMessageObserver(m.ObserveMessage))
	recoLoop := consumer.NewLoop("recommendation", recoReader, consumer.RecommendationHandler(orchestrator), serviceLogger,
		consumer.WithMessageObserver(m.ObserveMessage))
	cleanup.add(ingestLoop.Close)
	cleanup.add(recoLoop.Close)

	tree := supervisor.New(cfg.App.Name, cfg.Supervisor, serviceLogger)
	tree.AddConsumer(ingestLoop)
	tree.AddConsumer(recoLoop)

	if cfg.Metrics.Enabled {
		srv := httpx.NewServer(httpx.WithAddress(cfg.Metrics.Address))
		srv.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		tree.AddInfra(srv)
		serviceLogger.Info("Metrics endpoint on " + srv.Addr())
	}

	serviceLogger.Info("Recommendation service started")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		serviceLogger.WithPayload(map[string]interface{}{"unstopped": len(report)}).Warn("Some services did not stop in time, waiting for in-flight messages")
	}
	ingestLoop.Drain()
	recoLoop.Drain()
	serviceLogger.Info("Shutting down...")
	return nil
}

func buildStore(ctx context.Context, cfg *config.AppConfig, cleanup *closers) (store.SimilarityStore, error) {
	dim := cfg.Embedding.Dimension
	switch cfg.Store.Backend {
	case "postgres":
		db, err := postgres.NewDB(cfg.Databases.Postgres)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() error { return postgres.Close(db) })
		st := store.NewPostgresStore(db, dim, cfg.Databases.Postgres.IVFLists, cfg.Store.Timeout)
		if cfg.Store.Migrate {
			if err := st.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return st, nil

	case "milvus":
		mc, err := milvus.NewClient(ctx, cfg.Databases.Milvus)
		if err != nil {
			return nil, err
		}
		cleanup.add(mc.Close)
		db, err := mysql.NewDB(cfg.Databases.MySQL)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() error { return mysql.Close(db) })
		history := store.NewSQLHistoryStore(db, cfg.Store.Timeout)
		if cfg.Store.Migrate {
			if err := mc.EnsureCollection(ctx, dim); err != nil {
				return nil, fmt.Errorf("ensure milvus collection: %w", err)
			}
			if err := history.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate mysql history: %w", err)
			}
		}
		return store.NewMilvusStore(mc.Client, cfg.Databases.Milvus.CollectionName, dim,
			cfg.Databases.Milvus.NProbe, history, cfg.Store.Timeout), nil

	case "memory":
		return store.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildGenerationPool(cfg config.GenerationConfig, log *logger.Logger, m *metrics.Metrics) (*rotation.Pool[llm.LLM], error) {
	creds := make([]rotation.Credential[llm.LLM], 0, len(cfg.Credentials))
	for i, c := range cfg.Credentials {
		model, err := llm.NewLLM(c, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("generation credential %d: %w", i+1, err)
		}
		creds = append(creds, rotation.Credential[llm.LLM]{Label: fmt.Sprintf("Key %d", i+1), Client: model})
	}
	return rotation.New("generation", creds,
		rotation.WithClassifier(embedding.ClassifyFailure),
		rotation.WithTimeout(cfg.Timeout),
		rotation.WithLogger(log),
		rotation.WithObserver(m.ObserveCredential)), nil
}

func buildChain(ctx context.Context, cfg *config.AppConfig, pool *rotation.Pool[llm.LLM], log *logger.Logger, m *metrics.Metrics, cleanup *closers) (*tier.Chain, error) {
	rc := cfg.Recommendation
	limiter := ratelimiter.New(cfg.Generation.RateLimit.PerSecond, cfg.Generation.RateLimit.Burst)
	tiers := []tier.Strategy{tier.NewAITier(pool, rc.Brand, cfg.Generation.Temperature, tier.WithRateLimiter(limiter))}

	rdb := redisdb.NewClient(cfg.Databases.Redis)
	cleanup.add(rdb.Close)
	if err := redisdb.Ping(ctx, rdb); err != nil {
		log.WithError(models.NewErrorInfo(err, "downstream_unavailable")).Warn("Redis unreachable at startup, cache tier will retry per request")
	}
	tiers = append(tiers, tier.NewCacheTier(client.NewRedisCache(rdb, cfg.Databases.Redis, log), rc.LatestLimit, rc.FallbackCount, rc.Brand))

	es := cfg.EventService
	httpClient := httpx.NewClient(es.CircuitBreaker, es.Timeout,
		circuitbreaker.WithName("event-service"),
		circuitbreaker.WithStateChange(func(name string, from, to circuitbreaker.State) {
			log.WithPayload(map[string]interface{}{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		}))
	var opts []client.EventServiceOption
	if es.Discovery.Enabled {
		sd, err := etcd.NewServiceDiscovery(cfg.Databases.Etcd)
		if err != nil {
			return nil, fmt.Errorf("connect etcd: %w", err)
		}
		cleanup.add(sd.Close)
		opts = append(opts, client.WithResolver(sd, es.Discovery.ServiceName))
	}
	events := client.NewEventServiceClient(httpClient, es.BaseURL, es.Timeout, log, opts...)
	tiers = append(tiers, tier.NewExternalTier(events, rc.LatestLimit, rc.FallbackCount, rc.Brand))

	return tier.NewChain(tiers, tier.NewStaticTier(rc.Brand),
		tier.WithLogger(log),
		tier.WithObserver(m.ObserveTier)), nil
}

func buildDispatcher(ctx context.Context, cfg *config.AppConfig, cleanup *closers) (publisher.Dispatcher, error) {
	switch cfg.Dispatch.Backend {
	case "nats":
		nc, err := nats.Connect(cfg.Dispatch.NATS.URL, nats.Name(cfg.App.Name), nats.Timeout(cfg.Dispatch.Timeout))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		cleanup.add(nc.Drain)
		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := publisher.EnsureStream(setupCtx, js, cfg.Dispatch.NATS); err != nil {
			return nil, err
		}
		return publisher.NewNATSDispatcher(js, cfg.Dispatch.NATS.Subject, cfg.Dispatch.Timeout), nil

	default:
		d := publisher.NewKafkaDispatcher(kafkadb.NewWriter(cfg.Kafka, cfg.Kafka.Topics.EmailDispatch), cfg.Dispatch.Timeout)
		cleanup.add(d.Close)
		return d, nil
	}
}

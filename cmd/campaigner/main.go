package main

import (
	"context"
	"strings"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/config"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/credentials"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/dedup"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/guardrail"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/handlers"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/ingest"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/oracle"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/planner"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/scheduler"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/store"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/verify"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/auth"
	pkgconfig "github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/config"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/database"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/kafka"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/llm"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/monitoring"
	pkgredis "github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/redis"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/server"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("campaigner")

	// Load environment variables
	pkgconfig.LoadEnv(logger)

	logger.Info("Starting Campaigner (Content Pipeline API)")

	// Load pipeline configuration
	cfg, err := config.Load(pkgconfig.GetEnv("PLATFORMS_CONFIG", "platforms.yaml"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load pipeline configuration")
	}

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = pkgconfig.GetEnv("DATABASE_URL", "")
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	if err := database.ApplySchema(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to apply database schema")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("campaigner", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("campaigner", version.Version, version.GitCommit)
	pipelineMetrics := metricsCollector.CreatePipelineMetrics()

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": pkgconfig.GetEnv("DATABASE_URL", ""),
		"LLM_API_KEY":  pkgconfig.GetEnv("LLM_API_KEY", ""),
	}))

	// Optional Redis cache for the dedup comparison window
	st := store.New(db, logger)
	seedSource := store.NewSeedCache(st, nil, logger)
	if redisAddr := pkgconfig.GetEnv("REDIS_ADDR", ""); redisAddr != "" {
		redisClient, err := pkgredis.NewUniversalClient(context.Background(), pkgredis.Config{
			Mode:  pkgredis.Mode(pkgconfig.GetEnv("REDIS_MODE", "single")),
			Addrs: strings.Split(redisAddr, ","),
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
		seedSource = store.NewSeedCache(st, redisClient, logger)
		healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisClient))
	}

	// LLM providers, one per oracle so models can differ
	similarityProvider, err := llm.NewProvider(llm.LoadConfigWithPrefix("SIMILARITY"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create similarity LLM provider")
	}
	planningProvider, err := llm.NewProvider(llm.LoadConfigWithPrefix("PLANNING"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create planning LLM provider")
	}
	safetyProvider, err := llm.NewProvider(llm.LoadConfigWithPrefix("SAFETY"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create safety LLM provider")
	}

	// Pipeline components
	consolidator := dedup.NewConsolidator(st, seedSource,
		oracle.NewSimilarityOracle(similarityProvider), cfg.DedupWindow, logger, pipelineMetrics)
	runner := planner.NewRunner(oracle.NewPlanningOracle(planningProvider),
		guardrail.NewValidator(cfg.Guardrails), cfg.PlannerMaxRetries, logger, pipelineMetrics)
	materializer := planner.NewMaterializer(st, logger, pipelineMetrics)
	postScheduler := scheduler.New(st, cfg.Platforms, logger, pipelineMetrics)
	verifier := verify.NewCoordinator(st, oracle.NewSafetyOracle(safetyProvider), logger, pipelineMetrics)

	credCache := credentials.NewCache(st, logger)
	if err := credCache.PreloadAll(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to preload platform credentials")
	}

	// Optional Kafka ingestion
	if brokers := pkgconfig.GetEnv("KAFKA_BROKERS", ""); brokers != "" {
		producer, err := kafka.NewProducer(strings.Split(brokers, ","), "campaigner", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()

		consumer, err := kafka.NewConsumer(strings.Split(brokers, ","),
			pkgconfig.GetEnv("KAFKA_GROUP_ID", "campaigner"), "campaigner", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka consumer")
		}
		defer consumer.Close()

		worker := ingest.NewWorker(st, producer,
			pkgconfig.GetEnv("KAFKA_EVENTS_DLQ_TOPIC", "campaign.events.dlq"), logger, pipelineMetrics)
		consumer.AddHandler(pkgconfig.GetEnv("KAFKA_EVENTS_TOPIC", "campaign.events"), worker.HandleMessage)
		healthChecker.AddCheck("kafka", monitoring.KafkaConsumerHealthCheck(producer.Client()))

		go func() {
			if err := consumer.Start(context.Background()); err != nil && err != context.Canceled {
				logger.WithError(err).Error("Kafka consumer stopped")
			}
		}()
	}

	// Initialize handlers
	handlers.Init(handlers.Dependencies{
		Logger:       logger,
		Store:        st,
		Consolidator: consolidator,
		Runner:       runner,
		Materializer: materializer,
		Scheduler:    postScheduler,
		Verifier:     verifier,
		Credentials:  credCache,
	})

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "campaigner", healthChecker, metricsCollector)

	// Protected routes (require service token authentication)
	protected := router.Group("/api")
	protected.Use(auth.ServiceAuthMiddleware(pkgconfig.GetEnv("SERVICE_TOKEN", "default-service-token")))
	{
		// Pipeline runs
		protected.POST("/runs/consolidate", handlers.ConsolidateEvents)
		protected.POST("/runs/plan", handlers.GeneratePlan)

		// Scheduling
		protected.POST("/posts/:id/schedule", handlers.SchedulePost)
		protected.POST("/platforms/:platform/reindex", handlers.ReindexPlatform)

		// Verification
		protected.POST("/posts/:id/verify", handlers.VerifyPost)
		protected.POST("/posts/:id/override", handlers.OverridePost)

		// Inspection
		protected.GET("/seeds", handlers.ListSeeds)
		protected.GET("/tasks", handlers.ListTasks)
		protected.GET("/posts", handlers.ListPosts)

		// Credentials
		protected.PUT("/platforms/:platform/credentials", handlers.UpsertCredential)
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("campaigner", "18080")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"

	"github.com/eveternet/styleseeker-worker/internal/ai"
	"github.com/eveternet/styleseeker-worker/internal/catalog"
	"github.com/eveternet/styleseeker-worker/internal/config"
	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/logger"
	"github.com/eveternet/styleseeker-worker/internal/queue"
	"github.com/eveternet/styleseeker-worker/internal/telemetry"
	"github.com/eveternet/styleseeker-worker/internal/vector"
	"github.com/eveternet/styleseeker-worker/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("styleseeker-worker", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to init tracing:", err)
		}
		defer shutdown()
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Initialize Gemini client
	geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	// Pipeline wiring
	dbManager := database.NewTenantDBManager(mongoClient)
	mirror := database.NewMongoMirror(dbManager)
	tenants := database.NewTenantStore(mongoClient.Database(cfg.ControlDBName))
	index := vector.NewPineconeIndex(cfg.VectorIndexHost, cfg.VectorAPIKey)

	enricher := services.NewEnricher(geminiClient, mirror)
	sink := services.NewSink(index, mirror, cfg.VectorBatchSize,
		time.Duration(cfg.VectorBatchPauseMs)*time.Millisecond)
	importLock := services.NewRedisImportLock(rdb, time.Duration(cfg.ImportLockTTLMin)*time.Minute)
	importer := services.NewImporter(enricher, sink, mirror, importLock, catalog.Resolve,
		services.ImporterOptions{
			ChunkSize:       cfg.ChunkSize,
			MaxConcurrentAI: cfg.MaxConcurrentAI,
			GroupPause:      time.Duration(cfg.GroupPauseMs) * time.Millisecond,
			ChunkPause:      time.Duration(cfg.ChunkPauseMs) * time.Millisecond,
		})

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"webhooks": 6, // single-product ops stay responsive
				"imports":  3, // full imports are long-running
				"default":  1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(importer, tenants)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskCatalogImport, processor.HandleCatalogImport)
	mux.HandleFunc(queue.TaskProductUpsert, processor.HandleProductUpsert)
	mux.HandleFunc(queue.TaskProductDelete, processor.HandleProductDelete)
	mux.HandleFunc(queue.TaskProductPublish, processor.HandleProductPublish)

	// Scheduled full reimport: enqueue an import task per active tenant.
	if cfg.ReimportEnabled {
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()

		scheduler := gocron.NewScheduler(time.UTC)
		_, err := scheduler.Cron(cfg.ReimportCron).Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			active, err := tenants.ListActive(ctx)
			if err != nil {
				logger.Error("Scheduled reimport: tenant list failed", "error", err)
				return
			}
			for _, tenant := range active {
				task, err := queue.NewCatalogImportTask(tenant.ID.Hex())
				if err != nil {
					logger.Error("Scheduled reimport: task build failed", "tenant_id", tenant.ID.Hex(), "error", err)
					continue
				}
				if _, err := queueClient.Enqueue(task); err != nil {
					logger.Error("Scheduled reimport: enqueue failed", "tenant_id", tenant.ID.Hex(), "error", err)
				}
			}
			logger.Info("Scheduled reimport enqueued", "tenants", len(active))
		})
		if err != nil {
			log.Fatal("Failed to schedule reimport cron:", err)
		}
		scheduler.StartAsync()
		defer scheduler.Stop()

		logger.Info("Reimport cron scheduled", "cron", cfg.ReimportCron)
	}

	logger.Info("Starting worker",
		"concurrency", cfg.WorkerConcurrency,
		"redis", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Worker failed:", err)
	}
}

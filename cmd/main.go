package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/eveternet/styleseeker-worker/internal/ai"
	"github.com/eveternet/styleseeker-worker/internal/catalog"
	"github.com/eveternet/styleseeker-worker/internal/config"
	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/logger"
	"github.com/eveternet/styleseeker-worker/internal/telemetry"
	"github.com/eveternet/styleseeker-worker/internal/vector"
	"github.com/eveternet/styleseeker-worker/middleware"
	"github.com/eveternet/styleseeker-worker/routes"
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
		shutdown, err := telemetry.InitTracer("styleseeker-api", cfg.OTLPEndpoint)
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

	// Asynq client for queued imports and webhook tasks
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

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

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	// Setup routes
	routes.SetupTenantRoutes(router, authMiddleware, tenants)
	routes.SetupImportRoutes(router, authMiddleware, importer, tenants, queueClient)
	routes.SetupWebhookRoutes(router, authMiddleware, importer, tenants, queueClient)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

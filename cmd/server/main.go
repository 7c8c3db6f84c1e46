package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/claimlens/sync-api/internal/bulk"
	"github.com/claimlens/sync-api/internal/cache"
	"github.com/claimlens/sync-api/internal/client"
	"github.com/claimlens/sync-api/internal/config"
	"github.com/claimlens/sync-api/internal/database"
	"github.com/claimlens/sync-api/internal/eligibility"
	"github.com/claimlens/sync-api/internal/handler"
	"github.com/claimlens/sync-api/internal/middleware"
	"github.com/claimlens/sync-api/internal/queue"
	"github.com/claimlens/sync-api/internal/reconcile"
	"github.com/claimlens/sync-api/internal/store"
	"github.com/claimlens/sync-api/internal/submit"
	"github.com/claimlens/sync-api/internal/txlog"
	"github.com/claimlens/sync-api/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// progressStore is written by batch tasks and read by the status endpoint.
type progressStore interface {
	bulk.ProgressSink
	handler.ProgressSource
}

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis cache
	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		// Continue without Redis cache (fail-open)
		redisCache = nil
	}

	// Stores and domain services
	contents := store.NewContentStore(db)
	flags := store.NewFlagStore(db)
	outcomes := store.NewOutcomeStore(db)
	txLogger := txlog.New(db, cfg.Environment)
	reconciler := reconcile.New(flags)
	processor := webhook.NewProcessor(cfg.WebhookSecret, cfg.Environment, contents, flags, reconciler, txLogger)
	apiClient := client.NewAnalysisClient(cfg.AnalysisAPIURL, cfg.AnalysisAPIToken, cfg.WebhookCallbackURL)
	submitter := submit.New(contents, apiClient, txLogger, eligibility.AlwaysEnabled(), cfg.Environment)

	// Async task queue for submissions and batch tasks
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	tasks := queue.New(cfg.QueueCapacity, cfg.QueueWorkers)
	tasks.Start(ctx)
	defer tasks.Stop()

	// Bulk progress lives in redis when available so it survives restarts
	var progress progressStore = bulk.NewMemoryProgress()
	if redisCache != nil {
		progress = redisCache
	}
	orchestrator := bulk.NewOrchestrator(contents, outcomes, apiClient, tasks, progress, txLogger, cfg.Environment)

	// Initialize handlers
	webhookHandler := handler.NewWebhookHandler(processor, redisCache)
	contentHandler := handler.NewContentHandler(contents, flags, submitter, apiClient, txLogger, redisCache, tasks)
	bulkHandler := handler.NewBulkHandler(orchestrator, outcomes, progress)
	adminHandler := handler.NewAdminHandler(db, contents, txLogger)

	// Setup router
	r := gin.Default()
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Signature")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Inbound webhooks (signature-guarded, no operator auth)
	r.POST("/webhooks/analysis", webhookHandler.Receive)

	// API routes
	api := r.Group("/api")
	{
		api.POST("/contents", contentHandler.Submit)
		api.GET("/contents/:id", contentHandler.Get)
		api.GET("/contents/:id/log", contentHandler.ListLog)
		api.POST("/contents/:id/flags/:flagId/ignore", contentHandler.IgnoreFlag)
		api.POST("/contents/:id/flags/:flagId/reschedule", contentHandler.RescheduleFlag)

		admin := api.Group("/admin", middleware.OperatorMiddleware(cfg.JWTSecret))
		{
			admin.POST("/bulk", bulkHandler.Start)
			admin.GET("/bulk/:id", bulkHandler.Status)
			admin.GET("/stats", adminHandler.GetStats)
			admin.DELETE("/contents/:id/log", middleware.AdminOnly(), adminHandler.ClearLog)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	log.Printf("Sync API server starting on port %s (env %s)", port, cfg.Environment)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

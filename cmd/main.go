package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tax-document-platform/internal/ai"
	"tax-document-platform/internal/config"
	"tax-document-platform/internal/database"
	"tax-document-platform/internal/logger"
	"tax-document-platform/internal/telemetry"
	"tax-document-platform/internal/vectorindex"
	"tax-document-platform/middleware"
	"tax-document-platform/routes"
	"tax-document-platform/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("tax-document-platform", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	store := database.NewMongoStore(mongoClient.Database(cfg.DBName))

	// Redis is optional; rate limiting and the analysis cache degrade
	// gracefully without it.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("redis unavailable, rate limiting and analysis cache disabled", "error", err)
			rdb = nil
		}
	}

	// Qdrant is optional; search degrades to text and memory tiers.
	var index services.VectorIndex
	var embedder services.Embedder
	if cfg.VectorEnabled {
		qdrantIndex, err := vectorindex.NewQdrantIndex(cfg)
		if err != nil {
			logger.Warn("vector index unavailable, semantic search disabled", "error", err)
		} else {
			bootstrapCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := qdrantIndex.EnsureCollection(bootstrapCtx); err != nil {
				logger.Warn("collection bootstrap failed, semantic search disabled", "error", err)
				qdrantIndex.Close()
			} else {
				index = qdrantIndex
				defer qdrantIndex.Close()
			}
			cancel()
		}
	}
	var ocr services.OCREngine
	var analyst services.OpinionProvider
	if cfg.GeminiAPIKey != "" {
		embedder = ai.NewGeminiEmbedder(cfg)
		ocr = ai.NewVisionOCR(cfg)
		analyst = ai.NewGeminiAnalyst(cfg)
	}

	storage := services.NewFileStorage(cfg)
	extractor := services.NewExtractor(cfg, ocr)
	indexer := services.NewIndexer(embedder, index)
	cache := services.NewMemoryCache(cfg.MemoryCacheSize)

	documentService := services.NewDocumentService(cfg, store, storage, extractor, indexer, cache)
	analysisService := services.NewAnalysisService(store, store, analyst, rdb)
	searchService := services.NewSearchService(embedder, index, store, cache, cfg.SearchLimit)

	// Queue client is optional; without it all uploads process inline.
	var queueClient *asynq.Client
	if rdb != nil {
		redisOpt, err := config.AsynqRedisOpt(cfg)
		if err == nil {
			queueClient = asynq.NewClient(redisOpt)
			defer queueClient.Close()
		}
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("tax-document-platform"))
	}
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		storeHealthy := mongoClient.Ping(pingCtx, nil) == nil

		status := http.StatusOK
		label := "healthy"
		if !storeHealthy {
			status = http.StatusServiceUnavailable
			label = "degraded"
		}
		c.JSON(status, gin.H{
			"status":         label,
			"timestamp":      time.Now(),
			"store_healthy":  storeHealthy,
			"vector_enabled": index != nil,
			"queue_enabled":  queueClient != nil,
		})
	})

	api := router.Group("/api")
	{
		api.POST("/documents", routes.HandleUploadDocument(cfg, documentService, storage, queueClient))
		api.GET("/documents", routes.HandleListDocuments(documentService))
		api.GET("/documents/:id", routes.HandleGetDocument(documentService))
		api.DELETE("/documents/:id", routes.HandleDeleteDocument(documentService))
		api.POST("/documents/:id/reprocess", routes.HandleReprocessDocument(documentService))
		api.POST("/documents/:id/analyze", routes.HandleAnalyzeDocument(analysisService))
		api.GET("/search", routes.HandleSearch(searchService))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}

package main

import (
	"context"
	"log"

	"tax-document-platform/internal/ai"
	"tax-document-platform/internal/config"
	"tax-document-platform/internal/database"
	"tax-document-platform/internal/logger"
	"tax-document-platform/internal/queue"
	"tax-document-platform/internal/vectorindex"
	"tax-document-platform/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	store := database.NewMongoStore(mongoClient.Database(cfg.DBName))

	var index services.VectorIndex
	var embedder services.Embedder
	if cfg.VectorEnabled {
		qdrantIndex, err := vectorindex.NewQdrantIndex(cfg)
		if err != nil {
			logger.Warn("vector index unavailable, documents will not be indexed", "error", err)
		} else {
			index = qdrantIndex
			defer qdrantIndex.Close()
		}
	}

	var ocr services.OCREngine
	if cfg.GeminiAPIKey != "" {
		ocr = ai.NewVisionOCR(cfg)
		embedder = ai.NewGeminiEmbedder(cfg)
	}

	storage := services.NewFileStorage(cfg)
	extractor := services.NewExtractor(cfg, ocr)
	indexer := services.NewIndexer(embedder, index)
	cache := services.NewMemoryCache(cfg.MemoryCacheSize)
	documentService := services.NewDocumentService(cfg, store, storage, extractor, indexer, cache)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure Redis for the queue:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(documentService, storage)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.IngestDocument)

	logger.Info("worker starting", "redis", redisOpt.Addr, "concurrency", 10)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"tax-document-platform/internal/logger"
	"tax-document-platform/models"
	"tax-document-platform/services"
)

const TaskIngestDocument = "document:ingest"

// IngestPayload references a file already staged on disk. The worker
// loads the staged bytes, runs the full pipeline and removes the stage.
type IngestPayload struct {
	StagedPath   string `json:"staged_path"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
}

func NewIngestTask(stagedPath, originalName, mimeType string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		StagedPath:   stagedPath,
		OriginalName: originalName,
		MimeType:     mimeType,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor owns the worker-side handlers.
type TaskProcessor struct {
	documents *services.DocumentService
	storage   services.BlobStorage
}

func NewTaskProcessor(documents *services.DocumentService, storage services.BlobStorage) *TaskProcessor {
	return &TaskProcessor{documents: documents, storage: storage}
}

func (p *TaskProcessor) IngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	data, err := p.storage.Read(payload.StagedPath)
	if err != nil {
		// The staged file is gone; retrying cannot recover it.
		return fmt.Errorf("staged file unreadable: %v: %w", err, asynq.SkipRetry)
	}

	doc, err := p.documents.Ingest(ctx, models.UploadedFile{
		Data:     data,
		Filename: payload.OriginalName,
		MimeType: payload.MimeType,
		Size:     int64(len(data)),
	})
	if err != nil {
		return err
	}

	p.storage.Cleanup(payload.StagedPath)
	logger.Info("background ingestion completed", "document_id", doc.ID, "file", payload.OriginalName)
	return nil
}

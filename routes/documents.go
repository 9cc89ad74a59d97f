package routes

import (
	"errors"
	"io"
	"net/http"

	"tax-document-platform/internal/config"
	"tax-document-platform/internal/queue"
	"tax-document-platform/models"
	"tax-document-platform/services"
	"tax-document-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// HandleUploadDocument accepts a multipart upload and runs the full
// pipeline. Files above the sync processing limit are staged and
// handed to the background worker instead.
func HandleUploadDocument(cfg *config.Config, documents *services.DocumentService, storage *services.FileStorage, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file", "No file provided", nil)
			return
		}
		defer file.Close()

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large", "File size exceeds maximum limit", gin.H{
				"max_bytes": cfg.MaxFileSize,
			})
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileSize))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file", nil)
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}

		if queueClient != nil && header.Size > cfg.SyncProcessingLimit {
			stagedPath, err := storage.Stage(data)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to stage file for processing", nil)
				return
			}
			task, err := queue.NewIngestTask(stagedPath, header.Filename, mimeType)
			if err != nil {
				storage.Cleanup(stagedPath)
				utils.RespondWithInternalError(c, "Failed to create processing task", nil)
				return
			}
			if _, err := queueClient.Enqueue(task); err != nil {
				storage.Cleanup(stagedPath)
				utils.RespondWithInternalError(c, "Failed to enqueue processing task", nil)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{
				"status":   "queued",
				"filename": header.Filename,
				"message":  "Dokument wird im Hintergrund verarbeitet",
			})
			return
		}

		doc, err := documents.Ingest(c.Request.Context(), models.UploadedFile{
			Data:     data,
			Filename: header.Filename,
			MimeType: mimeType,
			Size:     header.Size,
		})
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, doc)
	}
}

func HandleListDocuments(documents *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := documents.List(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	}
}

func HandleGetDocument(documents *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := documents.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func HandleDeleteDocument(documents *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Dokument gelöscht"})
	}
}

// HandleReprocessDocument re-runs extraction for a stored document.
func HandleReprocessDocument(documents *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts services.ReprocessOptions
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&opts); err != nil {
				utils.RespondWithBadRequest(c, "Invalid reprocess options", nil)
				return
			}
		}

		doc, changed, err := documents.Reprocess(c.Request.Context(), c.Param("id"), opts)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"document": doc, "changed": changed})
	}
}

// HandleAnalyzeDocument returns the tax assessment, generating it lazily.
func HandleAnalyzeDocument(analyses *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		analysis, err := analyses.Analyze(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, analysis)
	}
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		utils.RespondWithNotFound(c, "Document not found")
	case errors.Is(err, services.ErrInvalidRequest):
		utils.RespondWithBadRequest(c, err.Error(), nil)
	default:
		utils.RespondWithInternalError(c, "Request failed", gin.H{"error": err.Error()})
	}
}

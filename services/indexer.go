package services

import (
	"context"
	"time"

	"tax-document-platform/internal/logger"
	"tax-document-platform/models"
)

// minIndexableChars is the shortest text worth an embedding; shorter
// text is deliberately left out of the vector index.
const minIndexableChars = 50

// Indexer writes one vector index entry per document. Indexing is
// best-effort: every failure is logged and swallowed, ingestion success
// depends only on the document record itself.
type Indexer struct {
	embedder Embedder
	index    VectorIndex
}

func NewIndexer(embedder Embedder, index VectorIndex) *Indexer {
	return &Indexer{embedder: embedder, index: index}
}

// IndexDocument embeds the extracted text and upserts the entry keyed by
// document id. Returns whether an index write happened.
func (ix *Indexer) IndexDocument(ctx context.Context, doc *models.Document) bool {
	if ix.embedder == nil || ix.index == nil {
		return false
	}
	if len(doc.ExtractedText) <= minIndexableChars {
		logger.Debug("skipping index write, text too short", "document_id", doc.ID, "chars", len(doc.ExtractedText))
		return false
	}

	vector, err := ix.embedder.Embed(ctx, doc.ExtractedText)
	if err != nil {
		logger.Error("embedding generation failed, document stays searchable via fallback tiers",
			"document_id", doc.ID, "error", err)
		return false
	}

	payload := map[string]any{
		"filename":      doc.OriginalName,
		"mime_type":     doc.MimeType,
		"size":          doc.Size,
		"uploaded_at":   doc.UploadedAt.Format(time.RFC3339),
		"document_type": doc.DocumentType,
		"language":      doc.Language,
	}

	if err := ix.index.Upsert(ctx, doc.ID, vector, payload); err != nil {
		logger.Error("vector upsert failed, document stays searchable via fallback tiers",
			"document_id", doc.ID, "error", err)
		return false
	}
	return true
}

// RemoveDocument drops the index entry; used by the delete cascade.
func (ix *Indexer) RemoveDocument(ctx context.Context, id string) {
	if ix.index == nil {
		return
	}
	if err := ix.index.Delete(ctx, id); err != nil {
		logger.Warn("vector delete failed", "document_id", id, "error", err)
	}
}

package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tax-document-platform/internal/config"
	"tax-document-platform/internal/logger"
	"tax-document-platform/models"

	"github.com/google/uuid"
)

// BlobStorage persists the raw upload bytes for later re-extraction.
type BlobStorage interface {
	Store(data []byte, originalName string) (*StoredFile, error)
	Read(path string) ([]byte, error)
	Cleanup(path string)
}

// ReprocessOptions selects the re-extraction mode. ForceOCR is only
// valid for image documents; EnhancedExtraction re-runs the full chain.
type ReprocessOptions struct {
	ForceOCR           bool `json:"force_ocr"`
	EnhancedExtraction bool `json:"enhanced_extraction"`
}

// DocumentService owns the ingestion pipeline: store raw bytes, extract,
// classify, then index. Extraction and classification must complete
// before the index write starts; the index write itself is best-effort.
type DocumentService struct {
	cfg       *config.Config
	store     DocumentStore
	storage   BlobStorage
	extractor *Extractor
	indexer   *Indexer
	cache     *MemoryCache

	// Re-extraction of the same id is serialized so concurrent
	// reprocess calls cannot interleave read-modify-write on one record.
	idLocks sync.Map
}

func NewDocumentService(cfg *config.Config, store DocumentStore, storage BlobStorage, extractor *Extractor, indexer *Indexer, cache *MemoryCache) *DocumentService {
	return &DocumentService{
		cfg:       cfg,
		store:     store,
		storage:   storage,
		extractor: extractor,
		indexer:   indexer,
		cache:     cache,
	}
}

// Ingest processes one uploaded file end to end. Ingestion succeeds iff
// the document record is persisted; indexing failures never surface.
func (s *DocumentService) Ingest(ctx context.Context, upload models.UploadedFile) (*models.Document, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: no file content", ErrInvalidRequest)
	}
	if upload.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidRequest)
	}

	stored, err := s.storage.Store(upload.Data, upload.Filename)
	if err != nil {
		return nil, fmt.Errorf("file storage failed: %w", err)
	}

	result := s.extractor.Extract(ctx, upload.Data, upload.MimeType, upload.Filename)

	now := time.Now()
	doc := &models.Document{
		ID:            uuid.NewString(),
		Filename:      stored.SecureName,
		OriginalName:  upload.Filename,
		MimeType:      upload.MimeType,
		Size:          int64(len(upload.Data)),
		FilePath:      stored.Path,
		FileHash:      stored.Hash,
		ExtractedText: result.Text,
		DocumentType:  ClassifyDocumentType(upload.Filename, result.Text),
		Language:      DetectLanguage(result.Text),
		UploadedAt:    now,
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.storage.Cleanup(stored.Path)
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	s.cache.Add(*doc)
	s.indexer.IndexDocument(ctx, doc)

	logger.Info("document ingested",
		"document_id", doc.ID, "type", doc.DocumentType, "method", result.Method, "chars", len(result.Text))
	return doc, nil
}

// Reprocess re-runs extraction over the stored raw bytes. The record is
// only touched when the new text differs, which makes repeated calls
// with unchanged inputs no-ops.
func (s *DocumentService) Reprocess(ctx context.Context, id string, opts ReprocessOptions) (*models.Document, bool, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if doc == nil {
		return nil, false, ErrDocumentNotFound
	}

	if opts.ForceOCR && !strings.HasPrefix(doc.MimeType, "image/") {
		return nil, false, fmt.Errorf("%w: OCR is only valid for image documents", ErrInvalidRequest)
	}

	data, err := s.storage.Read(doc.FilePath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load stored bytes: %w", err)
	}

	result := s.extractor.Extract(ctx, data, doc.MimeType, doc.OriginalName)
	if result.Text == doc.ExtractedText {
		return doc, false, nil
	}

	if err := s.store.UpdateExtractedText(ctx, id, result.Text); err != nil {
		return nil, false, err
	}

	now := time.Now()
	doc.ExtractedText = result.Text
	doc.UpdatedAt = &now
	s.cache.Add(*doc)
	s.indexer.IndexDocument(ctx, doc)

	logger.Info("document reprocessed", "document_id", id, "method", result.Method)
	return doc, true, nil
}

// Delete removes the record and cascades to the analysis row, the index
// entry, the cache entry and the stored file.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	s.indexer.RemoveDocument(ctx, id)
	s.cache.Remove(id)
	s.storage.Cleanup(doc.FilePath)

	logger.Info("document deleted", "document_id", id)
	return nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.store.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	return s.store.GetDocuments(ctx)
}

func (s *DocumentService) lockFor(id string) *sync.Mutex {
	lock, _ := s.idLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

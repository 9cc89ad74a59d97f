package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"tax-document-platform/internal/config"
	"tax-document-platform/models"
)

func newTestDocumentService(t *testing.T) (*DocumentService, *fakeStore, *fakeIndex, *MemoryCache) {
	t.Helper()

	cfg := testExtractorConfig()
	cfg.FileStorageDir = t.TempDir()

	store := newFakeStore()
	index := &fakeIndex{}
	cache := NewMemoryCache(50)
	storage := NewFileStorage(cfg)
	extractor := NewExtractor(cfg, nil)
	indexer := NewIndexer(&fakeEmbedder{}, index)

	return NewDocumentService(cfg, store, storage, extractor, indexer, cache), store, index, cache
}

func TestIngestRoundTrip(t *testing.T) {
	svc, store, index, cache := newTestDocumentService(t)

	content := "Hello €123,45 Rechnung vom 01.01.2024 mit Rechnungsnummer 42 und weiterem Inhalt"
	doc, err := svc.Ingest(context.Background(), models.UploadedFile{
		Data:     []byte(content),
		Filename: "rechnung_januar.txt",
		MimeType: "text/plain",
		Size:     int64(len(content)),
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if doc.ID == "" {
		t.Fatalf("missing document id")
	}
	if doc.DocumentType != "rechnung" {
		t.Fatalf("expected rechnung classification, got %q", doc.DocumentType)
	}
	if !strings.Contains(doc.ExtractedText, "€123,45") {
		t.Fatalf("content lost: %q", doc.ExtractedText)
	}
	if doc.FileHash == "" || doc.FilePath == "" {
		t.Fatalf("file metadata missing: %+v", doc)
	}

	// Persisted and indexed.
	stored, err := store.GetDocumentByID(context.Background(), doc.ID)
	if err != nil || stored == nil {
		t.Fatalf("document not persisted: %v", err)
	}
	if index.upserts != 1 {
		t.Fatalf("expected one index write, got %d", index.upserts)
	}

	// Findable through the search tiers.
	search := NewSearchService(nil, nil, store, cache, 5)
	resp := search.Search(context.Background(), "rechnungsnummer", 0)
	if len(resp.Results) != 1 || resp.Results[0].ID != doc.ID {
		t.Fatalf("ingested document not findable: %+v", resp)
	}
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	svc, _, _, _ := newTestDocumentService(t)

	_, err := svc.Ingest(context.Background(), models.UploadedFile{Filename: "leer.txt"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	_, err = svc.Ingest(context.Background(), models.UploadedFile{Data: []byte("x")})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for missing filename, got %v", err)
	}
}

func TestReprocessIdempotent(t *testing.T) {
	svc, _, _, _ := newTestDocumentService(t)

	doc, err := svc.Ingest(context.Background(), models.UploadedFile{
		Data:     []byte("stabiler Inhalt der sich nicht ändert"),
		Filename: "notiz.txt",
		MimeType: "text/plain",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	updated, changed, err := svc.Reprocess(context.Background(), doc.ID, ReprocessOptions{EnhancedExtraction: true})
	if err != nil {
		t.Fatalf("reprocess failed: %v", err)
	}
	if changed {
		t.Fatalf("unchanged extraction must not report a change")
	}
	if updated.UpdatedAt != nil {
		t.Fatalf("no-op reprocess must not touch the record")
	}

	// A second pass behaves identically.
	_, changed, err = svc.Reprocess(context.Background(), doc.ID, ReprocessOptions{EnhancedExtraction: true})
	if err != nil || changed {
		t.Fatalf("reprocess not idempotent: changed=%v err=%v", changed, err)
	}
}

func TestReprocessForceOCRRequiresImage(t *testing.T) {
	svc, _, _, _ := newTestDocumentService(t)

	doc, err := svc.Ingest(context.Background(), models.UploadedFile{
		Data:     []byte("text"),
		Filename: "notiz.txt",
		MimeType: "text/plain",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	_, _, err = svc.Reprocess(context.Background(), doc.ID, ReprocessOptions{ForceOCR: true})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for OCR on non-image, got %v", err)
	}
}

func TestReprocessUnknownDocument(t *testing.T) {
	svc, _, _, _ := newTestDocumentService(t)

	_, _, err := svc.Reprocess(context.Background(), "missing", ReprocessOptions{})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, store, index, cache := newTestDocumentService(t)

	doc, err := svc.Ingest(context.Background(), models.UploadedFile{
		Data:     []byte("Vertrag mit langer Laufzeit und Kündigungsfrist von drei Monaten"),
		Filename: "vertrag.txt",
		MimeType: "text/plain",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	filePath := doc.FilePath

	if err := svc.Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if got, _ := store.GetDocumentByID(context.Background(), doc.ID); got != nil {
		t.Fatalf("record survived deletion")
	}
	if len(index.deletes) != 1 || index.deletes[0] != doc.ID {
		t.Fatalf("index entry not removed: %v", index.deletes)
	}
	if cache.Len() != 0 {
		t.Fatalf("cache entry survived deletion")
	}
	if _, err := os.Stat(filePath); !os.IsNotExist(err) {
		t.Fatalf("stored file survived deletion")
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc, _, _, _ := newTestDocumentService(t)

	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetAndList(t *testing.T) {
	svc, _, _, _ := newTestDocumentService(t)

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}

	for _, name := range []string{"a.txt", "b.txt"} {
		if _, err := svc.Ingest(context.Background(), models.UploadedFile{
			Data:     []byte("inhalt " + name),
			Filename: name,
			MimeType: "text/plain",
		}); err != nil {
			t.Fatalf("ingest failed: %v", err)
		}
	}

	docs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
}

func newTestConfigWithStorage(t *testing.T) *config.Config {
	cfg := testExtractorConfig()
	cfg.FileStorageDir = t.TempDir()
	return cfg
}

func TestFileStorageRoundTrip(t *testing.T) {
	storage := NewFileStorage(newTestConfigWithStorage(t))

	stored, err := storage.Store([]byte("inhalt"), "meine rechnung..2024.pdf")
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if stored.Hash == "" || stored.SecureName == "" {
		t.Fatalf("metadata missing: %+v", stored)
	}
	if strings.Contains(stored.SecureName, " ") || strings.Contains(stored.SecureName, "..") {
		t.Fatalf("unsafe stored name: %q", stored.SecureName)
	}

	data, err := storage.Read(stored.Path)
	if err != nil || string(data) != "inhalt" {
		t.Fatalf("read back failed: %v %q", err, data)
	}

	storage.Cleanup(stored.Path)
	if _, err := os.Stat(stored.Path); !os.IsNotExist(err) {
		t.Fatalf("cleanup left file behind")
	}
}

func TestFileStorageStage(t *testing.T) {
	storage := NewFileStorage(newTestConfigWithStorage(t))

	path, err := storage.Stage([]byte("staged"))
	if err != nil {
		t.Fatalf("stage failed: %v", err)
	}
	data, err := storage.Read(path)
	if err != nil || string(data) != "staged" {
		t.Fatalf("staged read failed: %v %q", err, data)
	}
	storage.Cleanup(path)
}

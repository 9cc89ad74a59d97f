package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tax-document-platform/models"
)

func testDoc(id, name, text string) models.Document {
	return models.Document{
		ID:            id,
		OriginalName:  name,
		MimeType:      "application/pdf",
		Size:          100,
		ExtractedText: text,
		DocumentType:  "rechnung",
		Language:      "de",
		UploadedAt:    time.Now(),
	}
}

func TestSearchSemanticTier(t *testing.T) {
	store := newFakeStore()
	doc := testDoc("doc-1", "rechnung.pdf", "Rechnung über 100 Euro")
	store.CreateDocument(context.Background(), &doc)

	index := &fakeIndex{hits: []models.VectorHit{
		{ID: "doc-1", Score: 0.87, Payload: map[string]any{"filename": "rechnung.pdf"}},
	}}
	svc := NewSearchService(&fakeEmbedder{}, index, store, NewMemoryCache(10), 5)

	resp := svc.Search(context.Background(), "rechnung", 0)
	if resp.Tier != TierSemantic {
		t.Fatalf("expected semantic tier, got %q", resp.Tier)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	result := resp.Results[0]
	if result.Score != 0.87 {
		t.Fatalf("expected backend score, got %v", result.Score)
	}
	// Enrichment from the persistent store.
	if result.Filename != "rechnung.pdf" || result.Snippet == "" || result.Language != "de" {
		t.Fatalf("result not enriched: %+v", result)
	}
}

func TestSearchSemanticEmptyIsValid(t *testing.T) {
	// Zero hits from a working vector backend must not fall through to
	// the text tier.
	svc := NewSearchService(&fakeEmbedder{}, &fakeIndex{}, newFakeStore(), NewMemoryCache(10), 5)

	resp := svc.Search(context.Background(), "nichts", 0)
	if resp.Tier != TierSemantic {
		t.Fatalf("expected semantic tier for empty success, got %q", resp.Tier)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(resp.Results))
	}
}

func TestSearchDegradesToTextTier(t *testing.T) {
	store := newFakeStore()
	doc := testDoc("doc-1", "rechnung.pdf", "Rechnung über 100 Euro")
	store.CreateDocument(context.Background(), &doc)

	index := &fakeIndex{searchErr: errors.New("connection refused")}
	svc := NewSearchService(&fakeEmbedder{}, index, store, NewMemoryCache(10), 5)

	resp := svc.Search(context.Background(), "rechnung", 0)
	if resp.Tier != TierText {
		t.Fatalf("expected text tier, got %q", resp.Tier)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Score != 0.5 {
		t.Fatalf("expected fixed text tier score 0.5, got %v", resp.Results[0].Score)
	}
	if resp.Results[0].Tier != TierText {
		t.Fatalf("expected per-result tier label, got %q", resp.Results[0].Tier)
	}
}

func TestSearchDegradesToMemoryTier(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("mongo down")

	cache := NewMemoryCache(10)
	cache.Add(testDoc("doc-1", "rechnung.pdf", "Rechnung über 100 Euro"))

	svc := NewSearchService(&fakeEmbedder{err: errors.New("no key")}, &fakeIndex{}, store, cache, 5)

	resp := svc.Search(context.Background(), "rechnung", 0)
	if resp.Tier != TierMemory {
		t.Fatalf("expected memory tier, got %q", resp.Tier)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Score != 0.3 {
		t.Fatalf("expected fixed memory tier score 0.3, got %v", resp.Results[0].Score)
	}
}

func TestSearchWithoutVectorBackend(t *testing.T) {
	store := newFakeStore()
	doc := testDoc("doc-1", "vertrag.pdf", "Vertrag mit Laufzeit")
	store.CreateDocument(context.Background(), &doc)

	svc := NewSearchService(nil, nil, store, NewMemoryCache(10), 5)

	resp := svc.Search(context.Background(), "vertrag", 0)
	if resp.Tier != TierText {
		t.Fatalf("expected text tier without vector backend, got %q", resp.Tier)
	}
}

func TestSearchEnrichmentFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("lookup broken")

	index := &fakeIndex{hits: []models.VectorHit{
		{ID: "doc-1", Score: 0.9, Payload: map[string]any{"filename": "a.pdf", "document_type": "rechnung"}},
	}}
	svc := NewSearchService(&fakeEmbedder{}, index, store, NewMemoryCache(10), 5)

	resp := svc.Search(context.Background(), "rechnung", 0)
	if resp.Tier != TierSemantic {
		t.Fatalf("expected semantic tier, got %q", resp.Tier)
	}
	// Payload fields survive even when the store lookup fails.
	if resp.Results[0].Filename != "a.pdf" || resp.Results[0].DocumentType != "rechnung" {
		t.Fatalf("payload fields lost: %+v", resp.Results[0])
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	hits := make([]models.VectorHit, 8)
	for i := range hits {
		hits[i] = models.VectorHit{ID: string(rune('a' + i)), Score: 0.5}
	}
	svc := NewSearchService(&fakeEmbedder{}, &fakeIndex{hits: hits}, nil, nil, 5)

	resp := svc.Search(context.Background(), "x", 0)
	if len(resp.Results) != 5 {
		t.Fatalf("expected default limit 5 applied, got %d", len(resp.Results))
	}
}

package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tax-document-platform/models"
)

// Shared in-memory fakes for the collaborator interfaces.

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vec == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return f.vec, nil
}

type fakeIndex struct {
	hits        []models.VectorHit
	searchErr   error
	upsertErr   error
	upserts     int
	deletes     []string
	lastPayload map[string]any
}

func (f *fakeIndex) EnsureCollection(ctx context.Context) error { return nil }

func (f *fakeIndex) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	f.lastPayload = payload
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, limit int) ([]models.VectorHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Delete(ctx context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	docs     map[string]models.Document
	order    []string
	analyses map[string]models.Analysis
	findErr  error
	getErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:     make(map[string]models.Document),
		analyses: make(map[string]models.Analysis),
	}
}

func (f *fakeStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = *doc
	f.order = append(f.order, doc.ID)
	return nil
}

func (f *fakeStore) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (f *fakeStore) GetDocuments(ctx context.Context) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]models.Document, 0, len(f.docs))
	for _, id := range f.order {
		if doc, ok := f.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	delete(f.analyses, id)
	return nil
}

func (f *fakeStore) UpdateExtractedText(ctx context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("no document %s", id)
	}
	doc.ExtractedText = text
	f.docs[id] = doc
	return nil
}

func (f *fakeStore) FindByText(ctx context.Context, query string, limit int) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	lowerQuery := strings.ToLower(query)
	var matches []models.Document
	for _, id := range f.order {
		doc, ok := f.docs[id]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(doc.ExtractedText), lowerQuery) ||
			strings.Contains(strings.ToLower(doc.OriginalName), lowerQuery) {
			matches = append(matches, doc)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

func (f *fakeStore) GetAnalysis(ctx context.Context, documentID string) (*models.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	analysis, ok := f.analyses[documentID]
	if !ok {
		return nil, nil
	}
	return &analysis, nil
}

func (f *fakeStore) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses[analysis.DocumentID] = *analysis
	return nil
}

type fakeOpinionProvider struct {
	opinion string
	err     error
	calls   int
}

func (f *fakeOpinionProvider) GenerateOpinion(ctx context.Context, documentType, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.opinion, nil
}

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) Recognize(ctx context.Context, data []byte, languageHints []string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

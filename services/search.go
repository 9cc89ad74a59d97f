package services

import (
	"context"

	"tax-document-platform/internal/logger"
	"tax-document-platform/models"
)

// Search tier labels. Scores are not comparable across tiers, so every
// response names the tier that served it.
const (
	TierSemantic = "semantic"
	TierText     = "text_fallback"
	TierMemory   = "memory_fallback"
)

const (
	textFallbackScore   = 0.5
	memoryFallbackScore = 0.3
)

// SearchResponse carries the results plus the tier that produced them.
type SearchResponse struct {
	Tier    string                `json:"tier"`
	Results []models.SearchResult `json:"results"`
}

// SearchService answers free-text queries through three degradation
// tiers: vector similarity, persistent full-text scan, in-memory scan.
// A tier is skipped only on error; an empty result from a working tier
// is a valid answer.
type SearchService struct {
	embedder Embedder
	index    VectorIndex
	store    DocumentStore
	cache    *MemoryCache
	limit    int
}

func NewSearchService(embedder Embedder, index VectorIndex, store DocumentStore, cache *MemoryCache, defaultLimit int) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &SearchService{
		embedder: embedder,
		index:    index,
		store:    store,
		cache:    cache,
		limit:    defaultLimit,
	}
}

// Search never fails outright: the memory tier always answers, possibly
// with an empty set.
func (s *SearchService) Search(ctx context.Context, query string, limit int) *SearchResponse {
	if limit <= 0 {
		limit = s.limit
	}

	if results, ok := s.searchSemantic(ctx, query, limit); ok {
		return &SearchResponse{Tier: TierSemantic, Results: results}
	}
	if results, ok := s.searchText(ctx, query, limit); ok {
		return &SearchResponse{Tier: TierText, Results: results}
	}
	return &SearchResponse{Tier: TierMemory, Results: s.searchMemory(query, limit)}
}

// searchSemantic returns ok=false only when the backend errored; zero
// hits from a successful call are returned as-is.
func (s *SearchService) searchSemantic(ctx context.Context, query string, limit int) ([]models.SearchResult, bool) {
	if s.embedder == nil || s.index == nil {
		return nil, false
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, degrading to text search", "error", err)
		return nil, false
	}

	hits, err := s.index.Search(ctx, vector, limit)
	if err != nil {
		logger.Warn("vector search failed, degrading to text search", "error", err)
		return nil, false
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := models.SearchResult{
			ID:    hit.ID,
			Score: hit.Score,
			Tier:  TierSemantic,
		}
		if value, ok := hit.Payload["filename"].(string); ok {
			result.Filename = value
		}
		if value, ok := hit.Payload["document_type"].(string); ok {
			result.DocumentType = value
		}
		if value, ok := hit.Payload["language"].(string); ok {
			result.Language = value
		}
		s.enrich(ctx, &result)
		results = append(results, result)
	}
	return results, true
}

// enrich merges full record fields from the persistent store. A failed
// lookup leaves the result as-is; enrichment is per-result best-effort.
func (s *SearchService) enrich(ctx context.Context, result *models.SearchResult) {
	if s.store == nil {
		return
	}
	doc, err := s.store.GetDocumentByID(ctx, result.ID)
	if err != nil || doc == nil {
		return
	}
	result.Filename = doc.OriginalName
	result.MimeType = doc.MimeType
	result.Size = doc.Size
	result.DocumentType = doc.DocumentType
	result.Language = doc.Language
	uploadedAt := doc.UploadedAt
	result.UploadedAt = &uploadedAt
	result.Snippet = snippet(doc.ExtractedText)
}

func (s *SearchService) searchText(ctx context.Context, query string, limit int) ([]models.SearchResult, bool) {
	if s.store == nil {
		return nil, false
	}

	docs, err := s.store.FindByText(ctx, query, limit)
	if err != nil {
		logger.Warn("persistent text search failed, degrading to memory search", "error", err)
		return nil, false
	}
	return docsToResults(docs, TierText, textFallbackScore), true
}

func (s *SearchService) searchMemory(query string, limit int) []models.SearchResult {
	if s.cache == nil {
		return []models.SearchResult{}
	}
	return docsToResults(s.cache.Find(query, limit), TierMemory, memoryFallbackScore)
}

func docsToResults(docs []models.Document, tier string, score float64) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(docs))
	for _, doc := range docs {
		uploadedAt := doc.UploadedAt
		results = append(results, models.SearchResult{
			ID:           doc.ID,
			Score:        score,
			Tier:         tier,
			Filename:     doc.OriginalName,
			MimeType:     doc.MimeType,
			Size:         doc.Size,
			DocumentType: doc.DocumentType,
			Language:     doc.Language,
			UploadedAt:   &uploadedAt,
			Snippet:      snippet(doc.ExtractedText),
		})
	}
	return results
}

func snippet(text string) string {
	const snippetLen = 200
	if len(text) <= snippetLen {
		return text
	}
	return text[:snippetLen]
}

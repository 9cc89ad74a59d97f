package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tax-document-platform/internal/logger"
	"tax-document-platform/models"

	"github.com/redis/go-redis/v9"
)

const analysisCacheTTL = time.Hour

// AnalysisService produces a per-document tax assessment lazily: the
// first request generates and persists it, later requests return the
// stored row. Redis sits in front as a read-through cache and fails open.
type AnalysisService struct {
	store    DocumentStore
	analyses AnalysisStore
	provider OpinionProvider
	rdb      *redis.Client
}

func NewAnalysisService(store DocumentStore, analyses AnalysisStore, provider OpinionProvider, rdb *redis.Client) *AnalysisService {
	return &AnalysisService{
		store:    store,
		analyses: analyses,
		provider: provider,
		rdb:      rdb,
	}
}

// Analyze returns the assessment for a document, creating it on first use.
func (s *AnalysisService) Analyze(ctx context.Context, documentID string) (*models.Analysis, error) {
	if cached := s.fromRedis(ctx, documentID); cached != nil {
		return cached, nil
	}

	existing, err := s.analyses.GetAnalysis(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.toRedis(ctx, existing)
		return existing, nil
	}

	doc, err := s.store.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	analysis := s.build(ctx, doc)
	if err := s.analyses.SaveAnalysis(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to persist analysis: %w", err)
	}
	s.toRedis(ctx, analysis)
	return analysis, nil
}

func (s *AnalysisService) build(ctx context.Context, doc *models.Document) *models.Analysis {
	_, confidence := ClassifyWithConfidence(doc.OriginalName)

	analysis := &models.Analysis{
		DocumentID:   doc.ID,
		DocumentType: doc.DocumentType,
		TaxRelevance: taxRelevance(doc.DocumentType),
		Confidence:   confidence,
		CreatedAt:    time.Now(),
	}

	if s.provider == nil {
		analysis.Opinion = mockOpinion(doc.DocumentType)
		analysis.Mocked = true
		return analysis
	}

	opinion, err := s.provider.GenerateOpinion(ctx, doc.DocumentType, doc.ExtractedText)
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			logger.Warn("opinion generation failed, using mock", "document_id", doc.ID, "error", err)
		}
		analysis.Opinion = mockOpinion(doc.DocumentType)
		analysis.Mocked = true
		return analysis
	}

	analysis.Opinion = opinion
	return analysis
}

func taxRelevance(documentType string) string {
	switch documentType {
	case "spendenquittung", "steuerbescheid":
		return "hoch"
	case "rechnung", "gehaltsabrechnung":
		return "mittel"
	default:
		return "niedrig"
	}
}

func mockOpinion(documentType string) string {
	switch documentType {
	case "spendenquittung":
		return "Spendenquittungen sind als Sonderausgaben absetzbar. Bitte bewahren Sie den Originalbeleg auf."
	case "rechnung":
		return "Rechnungen können als Werbungskosten oder Betriebsausgaben relevant sein, sofern ein beruflicher Bezug besteht."
	case "steuerbescheid":
		return "Prüfen Sie den Bescheid innerhalb der Einspruchsfrist von einem Monat auf Abweichungen zur Erklärung."
	case "gehaltsabrechnung":
		return "Gehaltsabrechnungen dienen als Nachweis für Lohnsteuer und Sozialabgaben. Abgleich mit der Lohnsteuerbescheinigung empfohlen."
	case "kontoauszug":
		return "Kontoauszüge sind als Zahlungsnachweis relevant, insbesondere für haushaltsnahe Dienstleistungen."
	case "vertrag":
		return "Verträge können laufende absetzbare Kosten begründen. Eine Detailprüfung der Vertragskonditionen wird empfohlen."
	default:
		return "Für dieses Dokument konnte keine automatische Einschätzung erstellt werden. Eine manuelle Prüfung wird empfohlen."
	}
}

func (s *AnalysisService) fromRedis(ctx context.Context, documentID string) *models.Analysis {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, analysisCacheKey(documentID)).Result()
	if err != nil {
		return nil
	}
	var analysis models.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil
	}
	return &analysis
}

func (s *AnalysisService) toRedis(ctx context.Context, analysis *models.Analysis) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, analysisCacheKey(analysis.DocumentID), raw, analysisCacheTTL).Err(); err != nil {
		logger.Debug("analysis cache write failed", "error", err)
	}
}

func analysisCacheKey(documentID string) string {
	return "analysis:" + documentID
}

package services

import (
	"context"
	"errors"

	"tax-document-platform/models"
)

// Collaborator boundaries consumed by the ingestion and search services.
// Implementations live under internal/; tests substitute fakes.

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	GetDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	UpdateExtractedText(ctx context.Context, id, text string) error
	FindByText(ctx context.Context, query string, limit int) ([]models.Document, error)
}

type AnalysisStore interface {
	GetAnalysis(ctx context.Context, documentID string) (*models.Analysis, error)
	SaveAnalysis(ctx context.Context, analysis *models.Analysis) error
}

type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Search(ctx context.Context, vector []float32, limit int) ([]models.VectorHit, error)
	Delete(ctx context.Context, id string) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type OCREngine interface {
	Recognize(ctx context.Context, data []byte, languageHints []string) (string, error)
}

type OpinionProvider interface {
	GenerateOpinion(ctx context.Context, documentType, text string) (string, error)
}

var (
	// ErrNotConfigured marks an optional collaborator that is absent;
	// callers skip the strategy instead of treating it as a failure.
	ErrNotConfigured = errors.New("service not configured")

	// ErrNoUsableContent marks extraction output below the minimum
	// length threshold.
	ErrNoUsableContent = errors.New("no usable content extracted")

	// ErrDocumentNotFound is returned for operations on unknown ids.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidRequest marks client input rejected before any fallback
	// chain is entered.
	ErrInvalidRequest = errors.New("invalid request")
)

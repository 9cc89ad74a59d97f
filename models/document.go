package models

import (
	"time"
)

// Document represents an ingested document and its extraction outcome.
// The ID is an opaque UUID string, stable across re-extraction.
type Document struct {
	ID            string     `bson:"_id" json:"id"`
	Filename      string     `bson:"filename" json:"filename"`
	OriginalName  string     `bson:"original_name" json:"original_name"`
	MimeType      string     `bson:"mime_type" json:"mime_type"`
	Size          int64      `bson:"size" json:"size"`
	FilePath      string     `bson:"file_path" json:"-"` // on-disk raw bytes for re-extraction
	FileHash      string     `bson:"file_hash" json:"file_hash"`
	ExtractedText string     `bson:"extracted_text,omitempty" json:"extracted_text,omitempty"`
	DocumentType  string     `bson:"document_type,omitempty" json:"document_type,omitempty"`
	Language      string     `bson:"language,omitempty" json:"language,omitempty"`
	UploadedAt    time.Time  `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt     *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// UploadedFile is the raw upload before any processing.
type UploadedFile struct {
	Data     []byte
	Filename string
	MimeType string
	Size     int64
}

// ExtractionResult is the outcome of exactly one extraction strategy.
// Results are never merged across strategies; the first qualifying
// strategy wins.
type ExtractionResult struct {
	Text       string  `json:"text"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
	Truncated  bool    `json:"truncated"`
}

// SearchResult is one hit from the tiered search service. Score scales
// differ between tiers, so Tier must always accompany the score.
type SearchResult struct {
	ID           string     `json:"id"`
	Score        float64    `json:"score"`
	Tier         string     `json:"tier"`
	Filename     string     `json:"filename,omitempty"`
	MimeType     string     `json:"mime_type,omitempty"`
	Size         int64      `json:"size,omitempty"`
	DocumentType string     `json:"document_type,omitempty"`
	Language     string     `json:"language,omitempty"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
	Snippet      string     `json:"snippet,omitempty"`
}

// VectorHit is a raw similarity match from the vector index.
type VectorHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

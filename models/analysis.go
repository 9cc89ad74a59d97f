package models

import "time"

// Analysis is the cached expert assessment of one document. At most one
// exists per document; it is created lazily on the first analysis
// request and returned unchanged afterwards.
type Analysis struct {
	DocumentID   string    `bson:"document_id" json:"document_id"`
	DocumentType string    `bson:"document_type" json:"document_type"`
	TaxRelevance string    `bson:"tax_relevance" json:"tax_relevance"` // hoch, mittel, niedrig
	Opinion      string    `bson:"opinion" json:"opinion"`
	Confidence   float64   `bson:"confidence" json:"confidence"`
	Mocked       bool      `bson:"mocked" json:"mocked"` // true when no LLM provider was configured
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

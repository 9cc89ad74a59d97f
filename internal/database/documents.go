package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"tax-document-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the persistent document/analysis store. Deleting a
// document cascades to its analysis row.
type MongoStore struct {
	documents *mongo.Collection
	analyses  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		documents: db.Collection("documents"),
		analyses:  db.Collection("analyses"),
	}
}

func (s *MongoStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocumentByID returns (nil, nil) when no document exists.
func (s *MongoStore) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *MongoStore) GetDocuments(ctx context.Context) ([]models.Document, error) {
	cursor, err := s.documents.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes the document and its dependent analysis row.
func (s *MongoStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.documents.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if _, err := s.analyses.DeleteMany(ctx, bson.M{"document_id": id}); err != nil {
		return fmt.Errorf("failed to delete analyses for %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) UpdateExtractedText(ctx context.Context, id, text string) error {
	now := time.Now()
	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"extracted_text": text,
			"updated_at":     now,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update extracted text for %s: %w", id, err)
	}
	return nil
}

// FindByText scans name and extracted text case-insensitively for
// substring containment of the query.
func (s *MongoStore) FindByText(ctx context.Context, query string, limit int) ([]models.Document, error) {
	pattern := regexp.QuoteMeta(query)
	filter := bson.M{"$or": []bson.M{
		{"extracted_text": bson.M{"$regex": pattern, "$options": "i"}},
		{"original_name": bson.M{"$regex": pattern, "$options": "i"}},
	}}

	cursor, err := s.documents.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("text search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	return docs, nil
}

// GetAnalysis returns (nil, nil) when the document has not been analyzed.
func (s *MongoStore) GetAnalysis(ctx context.Context, documentID string) (*models.Analysis, error) {
	var analysis models.Analysis
	err := s.analyses.FindOne(ctx, bson.M{"document_id": documentID}).Decode(&analysis)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis for %s: %w", documentID, err)
	}
	return &analysis, nil
}

func (s *MongoStore) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	_, err := s.analyses.UpdateOne(ctx,
		bson.M{"document_id": analysis.DocumentID},
		bson.M{"$set": analysis},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save analysis for %s: %w", analysis.DocumentID, err)
	}
	return nil
}

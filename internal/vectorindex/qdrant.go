package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"tax-document-platform/internal/config"
	"tax-document-platform/models"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex stores one point per document id. Writes are keyed
// upserts, so later writes replace earlier ones and never duplicate.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
}

func NewQdrantIndex(cfg *config.Config) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		UseTLS: cfg.QdrantUseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.QdrantCollection,
		dimensions: uint64(cfg.VectorDimensions),
	}, nil
}

// EnsureCollection creates the collection on first use (cosine metric).
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	if q.collection == "" {
		return errors.New("empty collection name")
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (q *QdrantIndex) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(payload),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, limit int) ([]models.VectorHit, error) {
	result, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	hits := make([]models.VectorHit, 0, len(result))
	for _, point := range result {
		hit := models.VectorHit{
			ID:      point.Id.GetUuid(),
			Score:   float64(point.Score),
			Payload: make(map[string]any, len(point.Payload)),
		}
		for key, value := range point.Payload {
			hit.Payload[key] = valueToAny(value)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (q *QdrantIndex) Delete(ctx context.Context, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}

package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// ScoredChunk is one retrieved document chunk with its similarity score.
type ScoredChunk struct {
	ID         string
	Score      float32
	DocID      string
	FilePath   string
	ChunkIndex int
	Text       string
}

type CollectionInfo struct {
	PointsCount int64
	VectorDim   int
	UpdatedAt   time.Time
}

type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredChunk, error)
	DeleteByDoc(ctx context.Context, collection, docID string) error
	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)
	Close() error
}

type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

type QdrantStore struct {
	client *qdrant.Client
}

func NewQdrantStore(host string, port int, apiKey string) (*QdrantStore, error) {
	config := &qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	}

	// Cloud deployments require TLS alongside the API key
	if apiKey != "" {
		config.UseTLS = true
	}

	client, err := qdrant.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

func (q *QdrantStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func (q *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	qdrantPoints := make([]*qdrant.PointStruct, len(points))

	for i, point := range points {
		payload := make(map[string]interface{}, len(point.Payload)+1)
		for k, v := range point.Payload {
			payload[k] = v
		}
		payload["_indexed_at"] = time.Now().Format(time.RFC3339)

		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(point.ID),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
	})

	return err
}

func (q *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredChunk, error) {
	resp, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	results := make([]ScoredChunk, len(resp))
	for i, point := range resp {
		chunk := ScoredChunk{
			ID:    point.Id.GetUuid(),
			Score: point.Score,
		}

		if v := point.Payload["doc_id"]; v != nil {
			chunk.DocID = v.GetStringValue()
		}
		if v := point.Payload["file_path"]; v != nil {
			chunk.FilePath = v.GetStringValue()
		}
		if v := point.Payload["chunk_index"]; v != nil {
			chunk.ChunkIndex = int(v.GetIntegerValue())
		}
		if v := point.Payload["text"]; v != nil {
			chunk.Text = v.GetStringValue()
		}

		results[i] = chunk
	}

	return results, nil
}

func (q *QdrantStore) DeleteByDoc(ctx context.Context, collection, docID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						{
							ConditionOneOf: &qdrant.Condition_Field{
								Field: &qdrant.FieldCondition{
									Key: "doc_id",
									Match: &qdrant.Match{
										MatchValue: &qdrant.Match_Keyword{
											Keyword: docID,
										},
									},
								},
							},
						},
					},
				},
			},
		},
	})

	return err
}

func (q *QdrantStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	resp, err := q.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}

	vectorDim := 0
	if resp.Config != nil && resp.Config.Params != nil && resp.Config.Params.VectorsConfig != nil {
		if params := resp.Config.Params.VectorsConfig.GetParams(); params != nil {
			vectorDim = int(params.Size)
		}
	}

	pointsCount := int64(0)
	if resp.PointsCount != nil {
		pointsCount = int64(*resp.PointsCount)
	}

	return &CollectionInfo{
		PointsCount: pointsCount,
		VectorDim:   vectorDim,
		UpdatedAt:   time.Now(),
	}, nil
}

func (q *QdrantStore) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

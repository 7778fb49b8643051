package rag

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements Index backed by a Qdrant collection. It is meant
// for corpora too large for the in-memory index; note that equal-score
// ordering is whatever Qdrant returns, re-sorted client-side with the same
// tie-break the memory index uses.
type QdrantIndex struct {
	client *qdrant.Client
	cfg    *QdrantConfig

	// docs and count reflect the chunks upserted through this handle.
	docs  []DocInfo
	count int
}

// NewQdrantIndex connects to Qdrant and ensures the target collection
// exists, creating it if necessary.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("rag: qdrant client: %w", err)
	}

	ix := &QdrantIndex{client: client, cfg: cfg}
	if err := ix.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return ix, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (ix *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := ix.client.CollectionExists(ctx, ix.cfg.Collection)
	if err != nil {
		return fmt.Errorf("rag: qdrant collection check: %w", err)
	}
	if exists {
		return nil
	}

	err = ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: ix.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     ix.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("rag: qdrant create collection %q: %w", ix.cfg.Collection, err)
	}
	return nil
}

// Upsert stores chunks with their pre-computed embeddings. The embeddings
// slice must be parallel to chunks, as produced by Indexer.Prepare.
func (ix *QdrantIndex) Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("rag: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointID(c.ID)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    c.ID,
				"document_id": c.DocumentID,
				"title":       c.Title,
				"section":     c.Section,
				"category":    c.Category,
				"text":        c.Text,
				"offset":      int64(c.Offset),
			}),
		})
	}

	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("rag: qdrant upsert: %w", err)
	}

	ix.docs = summarize(chunks)
	ix.count = len(chunks)
	return nil
}

// Search implements Index.
func (ix *QdrantIndex) Search(ctx context.Context, embedding []float32, k int, category string) ([]Scored, error) {
	if k <= 0 {
		return []Scored{}, nil
	}

	limit := uint64(k)
	req := &qdrant.QueryPoints{
		CollectionName: ix.cfg.Collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if category != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("category", category)},
		}
	}

	points, err := ix.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rag: qdrant search: %w", err)
	}

	results := make([]Scored, 0, len(points))
	for _, p := range points {
		s := Scored{Score: float64(p.Score)}
		if payload := p.Payload; payload != nil {
			s.Chunk = Chunk{
				ID:         payload["chunk_id"].GetStringValue(),
				DocumentID: payload["document_id"].GetStringValue(),
				Title:      payload["title"].GetStringValue(),
				Section:    payload["section"].GetStringValue(),
				Category:   payload["category"].GetStringValue(),
				Text:       payload["text"].GetStringValue(),
				Offset:     int(payload["offset"].GetIntegerValue()),
			}
		}
		results = append(results, s)
	}

	sortScored(results)
	return results, nil
}

// Len implements Index. It reflects chunks upserted through this handle,
// not a remote count.
func (ix *QdrantIndex) Len() int { return ix.count }

// Documents implements Index.
func (ix *QdrantIndex) Documents() []DocInfo {
	return append([]DocInfo(nil), ix.docs...)
}

// Close closes the underlying Qdrant gRPC connection.
func (ix *QdrantIndex) Close() error {
	return ix.client.Close()
}

var _ Index = (*QdrantIndex)(nil)

// HealthCheck verifies the Qdrant connection is alive. Used by the server
// readiness probe.
func (ix *QdrantIndex) HealthCheck(ctx context.Context) error {
	if _, err := ix.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("rag: qdrant health check: %w", err)
	}
	return nil
}

// pointID maps a chunk ID to a stable numeric Qdrant point ID.
func pointID(chunkID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(chunkID))
	return h.Sum64()
}

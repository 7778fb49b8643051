package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Farx1/hrfaq-go/internal/corpus"
)

// embedBatchSize bounds the number of chunk texts sent to the embedding
// backend in one call.
const embedBatchSize = 64

// IndexerConfig holds chunking parameters for index builds.
type IndexerConfig struct {
	// ChunkSize is the maximum chunk length in characters. Defaults to
	// DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the character overlap between consecutive chunks.
	// Defaults to DefaultChunkOverlap if negative or unset via NewIndexer.
	ChunkOverlap int
}

// Indexer turns corpus documents into a searchable index: chunk, embed,
// assemble. Builds are pure with respect to their inputs — the same corpus
// and embedder produce a content-equal index every time.
type Indexer struct {
	embedder Embedder
	chunker  *Chunker
	log      *slog.Logger
}

// NewIndexer constructs an Indexer.
func NewIndexer(embedder Embedder, cfg *IndexerConfig, log *slog.Logger) (*Indexer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if cfg == nil {
		cfg = &IndexerConfig{}
	}
	if log == nil {
		log = slog.Default()
	}
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	return &Indexer{
		embedder: embedder,
		chunker:  NewChunker(size, overlap),
		log:      log,
	}, nil
}

// Build chunks and embeds docs into a fresh MemoryIndex. An empty corpus
// yields an empty, searchable index. Embedding failures abort the build —
// callers decide whether that is fatal (startup) or retryable (reindex).
func (ix *Indexer) Build(ctx context.Context, docs []corpus.Document) (*MemoryIndex, error) {
	chunks, vectors, err := ix.Prepare(ctx, docs)
	if err != nil {
		return nil, err
	}
	idx, err := NewMemoryIndex(chunks, vectors)
	if err != nil {
		return nil, err
	}
	ix.log.Info("rag: index built",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", idx.Len()),
	)
	return idx, nil
}

// Prepare chunks docs and embeds every chunk, returning parallel slices.
// Exposed separately so alternative index backends (Qdrant) can ingest the
// same chunk stream.
func (ix *Indexer) Prepare(ctx context.Context, docs []corpus.Document) ([]Chunk, [][]float32, error) {
	var chunks []Chunk
	for _, doc := range docs {
		split := ix.chunker.Split(doc)
		if len(split) == 0 {
			ix.log.Warn("rag: document produced no chunks",
				slog.String("document", doc.ID),
			)
			continue
		}
		chunks = append(chunks, split...)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		batch, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("rag: embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, nil, fmt.Errorf("rag: embedder returned %d vectors for %d texts", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}

	return chunks, vectors, nil
}

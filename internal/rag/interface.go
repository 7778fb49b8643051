// Package rag implements retrieval over the indexed HR corpus: chunking,
// index construction, cosine similarity search, and the atomically swappable
// index holder the server reads from. Concrete index backends (in-memory,
// Qdrant) satisfy the Index interface so callers never depend on a specific
// one.
package rag

import (
	"context"
	"errors"
)

// ErrIndexNotReady is returned when a search is attempted before the first
// index build has completed.
var ErrIndexNotReady = errors.New("rag: index not ready")

// ErrEmbeddingUnavailable is returned when the embedding backend cannot be
// reached or refuses the request. Embedder implementations wrap it so callers
// can test with errors.Is.
var ErrEmbeddingUnavailable = errors.New("rag: embedding backend unavailable")

// Chunk is one indexed fragment of a corpus document.
type Chunk struct {
	// ID is a deterministic identifier derived from the document ID and the
	// chunk position. Rebuilding the same corpus yields the same IDs.
	ID string

	// DocumentID is the corpus-relative path of the source document.
	DocumentID string

	// Title is the source document title.
	Title string

	// Section is the heading of the section this chunk came from.
	Section string

	// Category is the source document category (policy, benefits, ...).
	Category string

	// Text is the chunk content.
	Text string

	// Offset is the chunk's position within its document, starting at 0.
	Offset int
}

// Scored pairs a chunk with its similarity to a query.
type Scored struct {
	Chunk Chunk

	// Score is the cosine similarity in [−1, 1]; for the corpora indexed
	// here it is effectively [0, 1].
	Score float64
}

// DocInfo summarises one indexed document for listings.
type DocInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Chunks   int    `json:"chunks"`
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is a built, immutable view of the corpus that can be searched.
// Implementations must be safe for concurrent searches.
type Index interface {
	// Search returns the top-k chunks most similar to the query embedding,
	// ordered by non-increasing score. If category is non-empty only chunks
	// from documents of that category are considered. An empty index yields
	// an empty result, not an error.
	Search(ctx context.Context, embedding []float32, k int, category string) ([]Scored, error)

	// Len reports the number of indexed chunks.
	Len() int

	// Documents lists the indexed documents.
	Documents() []DocInfo

	// Close releases any resources held by the index.
	Close() error
}

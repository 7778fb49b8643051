package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
)

// MemoryIndex is the default Index: chunks and their L2-normalised embeddings
// held in memory. It is immutable after construction, so concurrent searches
// need no locking; updates happen by building a fresh index and swapping it
// into a Holder.
type MemoryIndex struct {
	chunks  []Chunk
	vectors [][]float32
	docs    []DocInfo
}

// NewMemoryIndex builds an index from parallel chunk and embedding slices.
// Embeddings are normalised on construction so searches reduce to a dot
// product.
func NewMemoryIndex(chunks []Chunk, embeddings [][]float32) (*MemoryIndex, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("rag: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	vectors := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		vectors[i] = normalize(e)
	}

	return &MemoryIndex{
		chunks:  append([]Chunk(nil), chunks...),
		vectors: vectors,
		docs:    summarize(chunks),
	}, nil
}

// Search implements Index. Results are ordered by score descending; equal
// scores are broken by document ID, then chunk offset, so identical queries
// against identical indexes always return the same slice.
func (ix *MemoryIndex) Search(ctx context.Context, embedding []float32, k int, category string) ([]Scored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(ix.chunks) == 0 {
		return []Scored{}, nil
	}

	query := normalize(embedding)
	results := make([]Scored, 0, len(ix.chunks))
	for i, c := range ix.chunks {
		if category != "" && c.Category != category {
			continue
		}
		results = append(results, Scored{Chunk: c, Score: dot(query, ix.vectors[i])})
	}

	sortScored(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len implements Index.
func (ix *MemoryIndex) Len() int { return len(ix.chunks) }

// Documents implements Index.
func (ix *MemoryIndex) Documents() []DocInfo {
	return append([]DocInfo(nil), ix.docs...)
}

// Close implements Index. The memory index holds no external resources.
func (ix *MemoryIndex) Close() error { return nil }

var _ Index = (*MemoryIndex)(nil)

// Holder publishes the current index to readers while builds happen in the
// background. Swap is atomic: in-flight searches finish on the index they
// started with.
type Holder struct {
	v atomic.Pointer[holderSlot]
}

type holderSlot struct {
	idx Index
}

// Get returns the current index, or ErrIndexNotReady before the first Swap.
func (h *Holder) Get() (Index, error) {
	s := h.v.Load()
	if s == nil {
		return nil, ErrIndexNotReady
	}
	return s.idx, nil
}

// Ready reports whether an index has been published.
func (h *Holder) Ready() bool {
	return h.v.Load() != nil
}

// Swap publishes idx as the current index and returns the previous one
// (nil before the first swap). The caller owns closing the returned index
// once it is sure no searches still reference it.
func (h *Holder) Swap(idx Index) Index {
	old := h.v.Swap(&holderSlot{idx: idx})
	if old == nil {
		return nil
	}
	return old.idx
}

// sortScored orders results by score descending, then document ID ascending,
// then offset ascending.
func sortScored(results []Scored) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.DocumentID != results[j].Chunk.DocumentID {
			return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
		}
		return results[i].Chunk.Offset < results[j].Chunk.Offset
	})
}

// summarize collapses chunks into per-document listings, preserving first
// appearance order.
func summarize(chunks []Chunk) []DocInfo {
	byID := make(map[string]int)
	var docs []DocInfo
	for _, c := range chunks {
		if i, ok := byID[c.DocumentID]; ok {
			docs[i].Chunks++
			continue
		}
		byID[c.DocumentID] = len(docs)
		docs = append(docs, DocInfo{
			ID:       c.DocumentID,
			Title:    c.Title,
			Category: c.Category,
			Chunks:   1,
		})
	}
	return docs
}

// normalize returns a unit-length copy of v. Zero vectors are returned as a
// copy unchanged so scores against them are 0, not NaN.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors. Mismatched
// lengths score 0 rather than panicking; the indexer guarantees uniform
// dimensions within one index.
func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

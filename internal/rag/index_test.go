package rag

import (
	"context"
	"testing"
)

func testChunk(doc string, offset int, category string) Chunk {
	return Chunk{
		ID:         chunkID(doc, offset),
		DocumentID: doc,
		Title:      doc,
		Section:    "s",
		Category:   category,
		Text:       "text",
		Offset:     offset,
	}
}

func TestMemoryIndex_SearchOrdering(t *testing.T) {
	t.Parallel()

	chunks := []Chunk{
		testChunk("a.md", 0, "policy"),
		testChunk("b.md", 0, "policy"),
		testChunk("c.md", 0, "policy"),
	}
	// Unit vectors: c is closest to the query, then a, then b.
	embeddings := [][]float32{
		{1, 0},
		{0, 1},
		{0.9, 0.1},
	}

	idx, err := NewMemoryIndex(chunks, embeddings)
	if err != nil {
		t.Fatal(err)
	}

	got, err := idx.Search(context.Background(), []float32{1, 0}, 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	wantOrder := []string{"a.md", "c.md", "b.md"}
	for i, want := range wantOrder {
		if got[i].Chunk.DocumentID != want {
			t.Errorf("result %d: got %s, want %s", i, got[i].Chunk.DocumentID, want)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %f > %f", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestMemoryIndex_TieBreak(t *testing.T) {
	t.Parallel()

	// All four chunks are identical vectors — pure tie. Order must be
	// document ID ascending, then offset ascending.
	chunks := []Chunk{
		testChunk("b.md", 1, ""),
		testChunk("a.md", 1, ""),
		testChunk("b.md", 0, ""),
		testChunk("a.md", 0, ""),
	}
	vec := []float32{1, 0}
	embeddings := [][]float32{vec, vec, vec, vec}

	idx, err := NewMemoryIndex(chunks, embeddings)
	if err != nil {
		t.Fatal(err)
	}

	got, err := idx.Search(context.Background(), vec, 4, "")
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		doc    string
		offset int
	}{
		{"a.md", 0}, {"a.md", 1}, {"b.md", 0}, {"b.md", 1},
	}
	for i, w := range want {
		if got[i].Chunk.DocumentID != w.doc || got[i].Chunk.Offset != w.offset {
			t.Errorf("result %d: got %s#%d, want %s#%d",
				i, got[i].Chunk.DocumentID, got[i].Chunk.Offset, w.doc, w.offset)
		}
	}
}

func TestMemoryIndex_Empty(t *testing.T) {
	t.Parallel()

	idx, err := NewMemoryIndex(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := idx.Search(context.Background(), []float32{1}, 5, "")
	if err != nil {
		t.Fatalf("empty index search must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestMemoryIndex_CategoryFilter(t *testing.T) {
	t.Parallel()

	chunks := []Chunk{
		testChunk("pay.md", 0, "payroll"),
		testChunk("leave.md", 0, "policy"),
	}
	vec := []float32{1, 0}
	idx, err := NewMemoryIndex(chunks, [][]float32{vec, vec})
	if err != nil {
		t.Fatal(err)
	}

	got, err := idx.Search(context.Background(), vec, 5, "payroll")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Chunk.DocumentID != "pay.md" {
		t.Errorf("category filter failed: %+v", got)
	}
}

func TestMemoryIndex_LengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := NewMemoryIndex([]Chunk{testChunk("a.md", 0, "")}, nil)
	if err == nil {
		t.Fatal("expected error for mismatched chunk/embedding lengths")
	}
}

func TestMemoryIndex_Documents(t *testing.T) {
	t.Parallel()

	chunks := []Chunk{
		testChunk("a.md", 0, "policy"),
		testChunk("a.md", 1, "policy"),
		testChunk("b.md", 0, "benefits"),
	}
	vec := []float32{1}
	idx, err := NewMemoryIndex(chunks, [][]float32{vec, vec, vec})
	if err != nil {
		t.Fatal(err)
	}

	docs := idx.Documents()
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "a.md" || docs[0].Chunks != 2 {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].ID != "b.md" || docs[1].Chunks != 1 {
		t.Errorf("docs[1] = %+v", docs[1])
	}
}

func TestHolder(t *testing.T) {
	t.Parallel()

	var h Holder
	if h.Ready() {
		t.Error("holder should not be ready before first swap")
	}
	if _, err := h.Get(); err != ErrIndexNotReady {
		t.Errorf("expected ErrIndexNotReady, got %v", err)
	}

	first, _ := NewMemoryIndex(nil, nil)
	if old := h.Swap(first); old != nil {
		t.Errorf("first swap should return nil, got %v", old)
	}
	if !h.Ready() {
		t.Error("holder should be ready after swap")
	}

	got, err := h.Get()
	if err != nil {
		t.Fatal(err)
	}
	if got != Index(first) {
		t.Error("Get returned a different index than was swapped in")
	}

	second, _ := NewMemoryIndex(nil, nil)
	if old := h.Swap(second); old != Index(first) {
		t.Error("Swap should return the previous index")
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	t.Parallel()

	out := normalize([]float32{0, 0, 0})
	for _, v := range out {
		if v != 0 {
			t.Errorf("zero vector must normalise to zero, got %v", out)
		}
	}
}

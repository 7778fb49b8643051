package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/Farx1/hrfaq-go/internal/rag"
)

// flakyEmbedder fails a fixed number of times before succeeding.
type flakyEmbedder struct {
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, rag.ErrEmbeddingUnavailable
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	inner := &flakyEmbedder{failures: 2}
	e := WithRetry(inner, 3)

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(vecs))
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	t.Parallel()

	inner := &flakyEmbedder{failures: 100}
	e := WithRetry(inner, 2)

	_, err := e.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, rag.ErrEmbeddingUnavailable) {
		t.Fatalf("expected wrapped ErrEmbeddingUnavailable, got %v", err)
	}
	// 1 initial attempt + 2 retries.
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyEmbedder{failures: 100}
	e := WithRetry(inner, 5)

	_, err := e.Embed(ctx, []string{"a"})
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
}

package embedder

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/Farx1/hrfaq-go/internal/rag"
)

// DefaultMaxRetries bounds the retry loop around query-time embedding calls.
const DefaultMaxRetries = 3

// retryingEmbedder wraps another embedder with bounded exponential backoff.
// Transient backend failures are retried; the final failure is returned
// wrapped so callers can errors.Is against rag.ErrEmbeddingUnavailable.
type retryingEmbedder struct {
	inner      rag.Embedder
	maxRetries uint64
}

// WithRetry wraps e with bounded exponential backoff. maxRetries <= 0 uses
// DefaultMaxRetries. Context cancellation stops the retry loop immediately.
func WithRetry(e rag.Embedder, maxRetries int) rag.Embedder {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &retryingEmbedder{inner: e, maxRetries: uint64(maxRetries)}
}

// Embed implements rag.Embedder.
func (r *retryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32

	op := func() error {
		vecs, err := r.inner.Embed(ctx, texts)
		if err != nil {
			return err
		}
		out = vecs
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("embedder: retries exhausted: %w", err)
	}
	return out, nil
}

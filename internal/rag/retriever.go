package rag

import (
	"context"
	"sync"
)

// DefaultTopK is the number of chunks retrieved when the caller does not
// specify k.
const DefaultTopK = 3

// Query wraps a question text and memoises its embedding, so a request that
// is retried or searched against multiple categories embeds exactly once.
type Query struct {
	// Text is the raw question.
	Text string

	once sync.Once
	emb  []float32
	err  error
}

// NewQuery wraps text in a Query.
func NewQuery(text string) *Query {
	return &Query{Text: text}
}

// Embedding returns the embedding of the query text, computing it on first
// call and caching the result (including a failure) for the lifetime of the
// Query value.
func (q *Query) Embedding(ctx context.Context, e Embedder) ([]float32, error) {
	q.once.Do(func() {
		vecs, err := e.Embed(ctx, []string{q.Text})
		if err != nil {
			q.err = err
			return
		}
		if len(vecs) != 1 {
			q.err = ErrEmbeddingUnavailable
			return
		}
		q.emb = vecs[0]
	})
	return q.emb, q.err
}

// Retriever fetches the most relevant corpus chunks for a query. It reads
// the current index through a Holder, so index rebuilds never block or
// corrupt in-flight retrievals.
type Retriever struct {
	embedder Embedder
	holder   *Holder
	topK     int
}

// NewRetriever constructs a Retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(embedder Embedder, holder *Holder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, holder: holder, topK: topK}
}

// TopK returns the retriever's default result count.
func (r *Retriever) TopK() int { return r.topK }

// Ready reports whether an index has been published and searches can serve.
func (r *Retriever) Ready() bool { return r.holder.Ready() }

// Retrieve returns the top-k chunks for q, restricted to category when it is
// non-empty. k <= 0 uses the retriever default. Returns ErrIndexNotReady
// before the first index build and wraps ErrEmbeddingUnavailable when the
// embedding backend is down.
func (r *Retriever) Retrieve(ctx context.Context, q *Query, k int, category string) ([]Scored, error) {
	idx, err := r.holder.Get()
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = r.topK
	}

	emb, err := q.Embedding(ctx, r.embedder)
	if err != nil {
		return nil, err
	}

	return idx.Search(ctx, emb, k, category)
}

// Package embedder provides implementations of the rag.Embedder interface.
// The default TF-IDF embedder is fully local and deterministic — the same
// corpus and query always produce the same vectors, which is what makes
// benchmark runs reproducible. The OpenAI, Azure OpenAI and Ollama embedders
// talk to their backends via plain HTTP — no additional SDK dependencies.
package embedder

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Farx1/hrfaq-go/internal/rag"
)

// Fitter is implemented by embedders that must see the corpus before they
// can embed queries. The index build path fits the embedder on the chunk
// texts; HTTP embedders don't need it and don't implement it.
type Fitter interface {
	Fit(texts []string)
}

// TFIDFEmbedder embeds text as L2-normalised TF-IDF vectors over a
// vocabulary fitted from the corpus. Terms outside the fitted vocabulary
// are ignored at query time.
type TFIDFEmbedder struct {
	mu    sync.RWMutex
	vocab map[string]int // term → vector dimension
	idf   []float32      // parallel to vocab dimensions
}

// NewTFIDF returns an unfitted TF-IDF embedder. Embed before Fit yields
// zero vectors; callers fit it on the corpus chunk texts during indexing.
func NewTFIDF() *TFIDFEmbedder {
	return &TFIDFEmbedder{vocab: map[string]int{}}
}

// Fit builds the vocabulary and inverse document frequencies from texts.
// The vocabulary is sorted, so dimension assignment is stable across runs.
func (e *TFIDFEmbedder) Fit(texts []string) {
	df := map[string]int{}
	for _, t := range texts {
		seen := map[string]bool{}
		for _, term := range tokenize(t) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float32, len(terms))
	n := float64(len(texts))
	for i, term := range terms {
		vocab[term] = i
		// Smoothed IDF: never zero, never negative.
		idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1)
	}

	e.mu.Lock()
	e.vocab = vocab
	e.idf = idf
	e.mu.Unlock()
}

// Dimensions returns the fitted vocabulary size.
func (e *TFIDFEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vocab)
}

// Embed implements rag.Embedder.
func (e *TFIDFEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(e.idf))
		for _, term := range tokenize(t) {
			if dim, ok := e.vocab[term]; ok {
				vec[dim] += e.idf[dim]
			}
		}
		l2normalize(vec)
		out[i] = vec
	}
	return out, nil
}

var _ rag.Embedder = (*TFIDFEmbedder)(nil)
var _ Fitter = (*TFIDFEmbedder)(nil)

// stopwords are dropped during tokenisation; they carry no retrieval signal
// and inflate the vocabulary.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "you": true, "your": true,
}

// tokenize lowercases text and splits on non-alphanumeric runs, dropping
// stopwords and single characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// l2normalize scales vec to unit length in place. Zero vectors stay zero.
func l2normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/Farx1/hrfaq-go/internal/corpus"
	"github.com/Farx1/hrfaq-go/internal/embedder"
	"github.com/Farx1/hrfaq-go/internal/gate"
	"github.com/Farx1/hrfaq-go/internal/pipeline"
	"github.com/Farx1/hrfaq-go/internal/provider"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/strategy"
)

// loadCorpus reads the policy corpus from HRFAQ_CORPUS_DIR and resolves the
// company name (HRFAQ_COMPANY overrides the name inferred from the corpus).
func loadCorpus(log *slog.Logger) (docs []corpus.Document, company, dir string, err error) {
	dir = getEnvOrDefault("HRFAQ_CORPUS_DIR", corpus.DefaultDir)
	docs, err = corpus.LoadDir(dir, log)
	if err != nil {
		return nil, "", "", fmt.Errorf("corpus: %w", err)
	}
	company = os.Getenv("HRFAQ_COMPANY")
	if company == "" {
		company = corpus.LoadCompanyName(dir)
	}
	return docs, company, dir, nil
}

// newEmbedder validates the embedding configuration and constructs the
// backend from the environment, wrapped with retries. The returned Fitter is
// non-nil only for backends that must see the corpus before embedding queries
// (tfidf); callers fit it before the first index build.
func newEmbedder(log *slog.Logger) (rag.Embedder, embedder.Fitter, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}
	raw, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("embedder: %w", err)
	}
	fitter, _ := raw.(embedder.Fitter)
	return embedder.WithRetry(raw, embedder.DefaultMaxRetries), fitter, nil
}

// chunkParams reads chunking overrides from the environment.
func chunkParams() (size, overlap int) {
	return getEnvInt("HRFAQ_CHUNK_SIZE", rag.DefaultChunkSize),
		getEnvInt("HRFAQ_CHUNK_OVERLAP", rag.DefaultChunkOverlap)
}

// fitOnCorpus fits a corpus-dependent embedder on the chunk texts the index
// build will embed, using the same chunking parameters.
func fitOnCorpus(fitter embedder.Fitter, docs []corpus.Document) {
	if fitter == nil {
		return
	}
	size, overlap := chunkParams()
	chunker := rag.NewChunker(size, overlap)
	var texts []string
	for _, doc := range docs {
		for _, c := range chunker.Split(doc) {
			texts = append(texts, c.Text)
		}
	}
	fitter.Fit(texts)
}

// newIndexer constructs an Indexer with env-configured chunking.
func newIndexer(emb rag.Embedder, log *slog.Logger) (*rag.Indexer, error) {
	size, overlap := chunkParams()
	ix, err := rag.NewIndexer(emb, &rag.IndexerConfig{ChunkSize: size, ChunkOverlap: overlap}, log)
	if err != nil {
		return nil, fmt.Errorf("indexer: %w", err)
	}
	return ix, nil
}

// qdrantConfigFromEnv assembles Qdrant connection parameters. vectorSize must
// match the embedder's output dimensionality.
func qdrantConfigFromEnv(vectorSize uint64) *rag.QdrantConfig {
	return &rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "hrfaq-policies"),
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	}
}

// embedderDimensions resolves the vector size for external index backends.
// Corpus-fitted embedders report their own dimensionality after fitting.
func embedderDimensions(fitter embedder.Fitter) uint64 {
	if fitter != nil {
		if d, ok := fitter.(interface{ Dimensions() int }); ok {
			return uint64(d.Dimensions())
		}
	}
	return uint64(embedder.DefaultDimensions(embedder.Backend()))
}

// buildStrategy constructs the active prompt strategy from the environment.
func buildStrategy(company string) (strategy.Strategy, error) {
	cfg := &strategy.Config{
		Company: company,
		Seed:    getEnvInt64("HRFAQ_SEED", 0),
		FewShot: getEnvInt("HRFAQ_FEW_SHOT", 0),
	}
	strat, err := strategy.New(os.Getenv("HRFAQ_STRATEGY"), cfg)
	if err != nil {
		return nil, err
	}
	return strat, nil
}

// buildPipeline wires the chat model and active strategy into an answer
// pipeline.
func buildPipeline(ctx context.Context, company string) (*pipeline.Pipeline, *provider.Config, error) {
	providerCfg := provider.ConfigFromEnv()
	if providerCfg.Company == "" {
		providerCfg.Company = company
	}
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("provider: %w", err)
	}
	strat, err := buildStrategy(company)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(chatModel, strat), providerCfg, nil
}

// buildGate constructs the domain gate from the environment.
func buildGate() *gate.KeywordGate {
	return gate.NewFromEnv()
}

// getEnvOrDefault returns the env var value or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or fallback when unset or
// unparseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvInt64 returns the env var parsed as int64, or fallback.
func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvFloat returns the env var parsed as float64, or fallback.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

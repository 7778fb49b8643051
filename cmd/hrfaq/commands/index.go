package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/rag"
)

// NewIndexCmd constructs the `hrfaq index` command, which builds the policy
// index once and prints corpus statistics. With the qdrant backend it upserts
// the corpus into the configured collection for later use by serve.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the policy index and print corpus statistics",
		Long: `Chunk and embed the policy corpus, then print what was indexed.

With HRFAQ_INDEX_BACKEND=memory (the default) this is a dry run that verifies
the corpus chunks and embeds cleanly. With HRFAQ_INDEX_BACKEND=qdrant the
chunks are upserted into the configured Qdrant collection.

Relevant environment variables:
  HRFAQ_CORPUS_DIR     Corpus directory (default: company_data)
  HRFAQ_CHUNK_SIZE     Maximum chunk length in characters (default: 1000)
  HRFAQ_CHUNK_OVERLAP  Overlap between consecutive chunks (default: 100)
  EMBEDDING_PROVIDER   Embedding backend: tfidf, ollama, openai, azure
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: hrfaq-policies)

Examples:
  hrfaq index
  HRFAQ_INDEX_BACKEND=qdrant EMBEDDING_PROVIDER=openai hrfaq index`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			docs, company, dir, err := loadCorpus(log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			log.Info("corpus loaded",
				slog.String("dir", dir),
				slog.Int("documents", len(docs)),
				slog.String("company", company),
			)

			emb, fitter, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			fitOnCorpus(fitter, docs)

			indexer, err := newIndexer(emb, log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			var idx rag.Index
			backend := getEnvOrDefault("HRFAQ_INDEX_BACKEND", "memory")
			switch backend {
			case "qdrant":
				chunks, vectors, prepErr := indexer.Prepare(ctx, docs)
				if prepErr != nil {
					return fmt.Errorf("index: %w", prepErr)
				}
				qcfg := qdrantConfigFromEnv(embedderDimensions(fitter))
				qidx, qErr := rag.NewQdrantIndex(ctx, qcfg)
				if qErr != nil {
					return fmt.Errorf("index: failed to connect to Qdrant at %s:%d: %w", qcfg.Host, qcfg.Port, qErr)
				}
				defer qidx.Close()
				if err := qidx.Upsert(ctx, chunks, vectors); err != nil {
					return fmt.Errorf("index: %w", err)
				}
				idx = qidx
			default:
				midx, bErr := indexer.Build(ctx, docs)
				if bErr != nil {
					return fmt.Errorf("index: %w", bErr)
				}
				idx = midx
			}

			fmt.Printf("Indexed %d documents into %d chunks (backend: %s)\n\n", len(docs), idx.Len(), backend)
			for _, info := range idx.Documents() {
				fmt.Printf("  %-40s %-12s %3d chunks\n", info.Title, info.Category, info.Chunks)
			}
			return nil
		},
	}

	return cmd
}

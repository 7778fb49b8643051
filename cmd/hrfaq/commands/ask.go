package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/stream"
)

// NewAskCmd constructs the `hrfaq ask` command, which answers a single HR
// question from the local policy corpus and streams the answer to stdout.
func NewAskCmd() *cobra.Command {
	var category string
	var topK int
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the HR assistant a question",
		Long: `Ask a single HR question against the local policy corpus.

The corpus is indexed in memory for the lifetime of the command. Questions
outside the HR domain are deflected without touching the model provider.

Examples:
  hrfaq ask "how many vacation days do I get?"
  hrfaq ask --category benefits "how does the 401k match work?"
  MODEL_PROVIDER=ollama hrfaq ask "what is the parental leave policy?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			docs, company, _, err := loadCorpus(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			emb, fitter, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fitOnCorpus(fitter, docs)

			indexer, err := newIndexer(emb, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			idx, err := indexer.Build(ctx, docs)
			if err != nil {
				return fmt.Errorf("ask: index build: %w", err)
			}
			holder := &rag.Holder{}
			holder.Swap(idx)

			pipe, _, err := buildPipeline(ctx, company)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			ctrl := stream.NewController(stream.ControllerConfig{
				Gate:      buildGate(),
				Retriever: rag.NewRetriever(emb, holder, getEnvInt("HRFAQ_RETRIEVAL_TOPK", rag.DefaultTopK)),
				Pipeline:  pipe,
				Company:   company,
				Logger:    log,
			})

			req := stream.Request{
				Question: strings.Join(args, " "),
				Category: category,
				TopK:     topK,
			}
			events, err := ctrl.Run(ctx, req)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			for ev := range events {
				switch ev.Type {
				case stream.EventChunk:
					fmt.Print(ev.Content)
				case stream.EventDone:
					if ev.Metadata != nil && ev.Metadata.Error != "" {
						return fmt.Errorf("ask: %s", ev.Metadata.Error)
					}
					fmt.Println()
					if showSources && ev.Metadata != nil && len(ev.Metadata.Sources) > 0 {
						fmt.Fprintln(os.Stderr, "\nSources:")
						for _, src := range ev.Metadata.Sources {
							fmt.Fprintf(os.Stderr, "  - %s (%s, similarity %.2f)\n",
								src.Title, src.Category, src.Similarity)
						}
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict retrieval to one policy category")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of policy chunks to retrieve (default: configured top-k)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print retrieved source documents to stderr")

	return cmd
}

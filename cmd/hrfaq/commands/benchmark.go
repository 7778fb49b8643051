package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Farx1/hrfaq-go/internal/benchmark"
	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/pipeline"
	"github.com/Farx1/hrfaq-go/internal/provider"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/strategy"
)

// NewBenchmarkCmd constructs the `hrfaq benchmark` command, which evaluates
// the baseline and optimized prompt strategies over a question set and
// reports paired statistical comparisons.
func NewBenchmarkCmd() *cobra.Command {
	var reportsDir string
	var alpha float64
	var seed int64
	var questionsPath string
	var oodPath string

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare prompt strategies over a question set",
		Long: `Run both prompt strategies over a shared question set and compare them.

Every variant answers the same questions against the same index, so the
per-question score differences feed a paired t-test. The run writes three
artifacts to the reports directory: summary.json (aggregates and comparison),
records.ndjson (one line per answer, appended across runs), and report.md.

Question files are JSON arrays of {"question": ..., "answer": ...} objects;
out-of-domain files omit the answer. Without --questions a small built-in set
is used.

Examples:
  hrfaq benchmark
  hrfaq benchmark --questions eval/hr_questions.json --ood-questions eval/ood.json
  hrfaq benchmark --seed 7 --alpha 0.01 --reports-dir ./reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			docs, company, dir, err := loadCorpus(log)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			log.Info("corpus loaded", slog.String("dir", dir), slog.Int("documents", len(docs)))

			emb, fitter, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			fitOnCorpus(fitter, docs)

			indexer, err := newIndexer(emb, log)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			idx, err := indexer.Build(ctx, docs)
			if err != nil {
				return fmt.Errorf("benchmark: index build: %w", err)
			}
			holder := &rag.Holder{}
			holder.Swap(idx)
			retriever := rag.NewRetriever(emb, holder, getEnvInt("HRFAQ_RETRIEVAL_TOPK", rag.DefaultTopK))

			providerCfg := provider.ConfigFromEnv()
			if providerCfg.Company == "" {
				providerCfg.Company = company
			}
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			// Both strategies share the model, the seed, and the retrieval
			// context; only the prompting differs between variants.
			stratCfg := &strategy.Config{
				Company: company,
				Seed:    seed,
				FewShot: getEnvInt("HRFAQ_FEW_SHOT", 0),
			}
			baseline, err := strategy.New(strategy.NameBaseline, stratCfg)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			optimized, err := strategy.New(strategy.NameOptimized, stratCfg)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			variants := []benchmark.Variant{
				{Name: strategy.NameBaseline, Pipeline: pipeline.New(chatModel, baseline)},
				{Name: strategy.NameOptimized, Pipeline: pipeline.New(chatModel, optimized)},
			}

			set, err := loadQuestionSet(questionsPath, oodPath)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			log.Info("question set loaded",
				slog.Int("in_domain", len(set.InDomain)),
				slog.Int("out_of_domain", len(set.OutOfDomain)),
			)

			runner := benchmark.NewRunner(benchmark.RunnerConfig{
				Gate:      buildGate(),
				Retriever: retriever,
				Alpha:     alpha,
				Seed:      seed,
				Logger:    log,
			})
			report, err := runner.Run(ctx, set, variants)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}

			if err := benchmark.WriteArtifacts(reportsDir, report); err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			log.Info("artifacts written", slog.String("dir", reportsDir))

			fmt.Print(benchmark.Markdown(report))
			return nil
		},
	}

	cmd.Flags().StringVar(&reportsDir, "reports-dir", getEnvOrDefault("HRFAQ_BENCH_REPORTS_DIR", "reports"), "Directory for benchmark artifacts")
	cmd.Flags().Float64Var(&alpha, "alpha", getEnvFloat("HRFAQ_BENCH_ALPHA", benchmark.DefaultAlpha), "Significance level for the paired t-tests")
	cmd.Flags().Int64Var(&seed, "seed", getEnvInt64("HRFAQ_BENCH_SEED", 42), "Seed for exemplar sampling, recorded in the report")
	cmd.Flags().StringVar(&questionsPath, "questions", os.Getenv("HRFAQ_BENCH_QUESTIONS"), "Path to the in-domain question JSON file")
	cmd.Flags().StringVar(&oodPath, "ood-questions", os.Getenv("HRFAQ_BENCH_OOD_QUESTIONS"), "Path to the out-of-domain question JSON file")

	return cmd
}

// loadQuestionSet resolves the evaluation set: explicit files when given,
// the built-in set otherwise.
func loadQuestionSet(questionsPath, oodPath string) (*benchmark.Set, error) {
	if questionsPath == "" {
		return benchmark.DefaultSet(), nil
	}
	set, err := benchmark.LoadSet(questionsPath, oodPath)
	if err != nil {
		return nil, err
	}
	return set, nil
}

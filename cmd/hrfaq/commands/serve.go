package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/qdrant/go-client/qdrant"
	"github.com/spf13/cobra"

	"github.com/Farx1/hrfaq-go/internal/corpus"
	"github.com/Farx1/hrfaq-go/internal/embedder"
	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/server"
	"github.com/Farx1/hrfaq-go/internal/store"
	"github.com/Farx1/hrfaq-go/internal/stream"
	"github.com/Farx1/hrfaq-go/internal/tracing"
)

// NewServeCmd constructs the `hrfaq serve` command, which indexes the policy
// corpus and starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HR FAQ HTTP server",
		Long: `Start the HR FAQ HTTP server on localhost.

The server indexes the policy corpus on startup and exposes a REST API:
POST /api/ask answers synchronously, POST /api/ask/stream streams the answer
as server-sent events, POST /api/reindex rebuilds the index from disk without
downtime, and GET /api/documents lists the indexed policies.

Examples:
  hrfaq serve
  hrfaq serve --port 9090
  HRFAQ_CORPUS_DIR=./policies MODEL_PROVIDER=openai hrfaq serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			docs, company, dir, err := loadCorpus(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("corpus loaded",
				slog.String("dir", dir),
				slog.Int("documents", len(docs)),
				slog.String("company", company),
			)

			emb, fitter, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			fitOnCorpus(fitter, docs)

			indexer, err := newIndexer(emb, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			holder := &rag.Holder{}
			mgr := &indexManager{
				dir:     dir,
				backend: getEnvOrDefault("HRFAQ_INDEX_BACKEND", "memory"),
				fitter:  fitter,
				indexer: indexer,
				holder:  holder,
				log:     log,
			}
			if mgr.backend == "qdrant" {
				mgr.qcfg = qdrantConfigFromEnv(embedderDimensions(fitter))
			}
			if err := mgr.publish(ctx, docs); err != nil {
				return fmt.Errorf("serve: initial index build: %w", err)
			}
			defer mgr.close()

			// Open conversation history store. HRFAQ_HISTORY_DB overrides the
			// default path (~/.hrfaq/history.db). Set to "disabled" to disable.
			var historyStore store.ConversationStore
			dbPath := os.Getenv("HRFAQ_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via HRFAQ_HISTORY_DB=disabled")
			}

			pipe, providerCfg, err := buildPipeline(ctx, company)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			retriever := rag.NewRetriever(emb, holder, getEnvInt("HRFAQ_RETRIEVAL_TOPK", rag.DefaultTopK))

			ctrl := stream.NewController(stream.ControllerConfig{
				Gate:         buildGate(),
				Retriever:    retriever,
				Pipeline:     pipe,
				History:      historyStore,
				Company:      company,
				HistoryDepth: getEnvInt("HRFAQ_HISTORY_DEPTH", 0),
				Logger:       log,
			})

			pingers := []server.Pinger{
				server.NewIndexPinger(holder),
				server.NewEmbedderPinger(emb, embedder.Backend()),
			}
			if mgr.qcfg != nil {
				qc, qErr := qdrant.NewClient(&qdrant.Config{
					Host:   mgr.qcfg.Host,
					Port:   mgr.qcfg.Port,
					APIKey: mgr.qcfg.APIKey,
					UseTLS: mgr.qcfg.UseTLS,
				})
				if qErr != nil {
					log.Warn("qdrant probe client unavailable", slog.Any("error", qErr))
				} else {
					pingers = append(pingers, server.NewQdrantPinger(qc))
				}
			}

			srv, err := server.New(ctrl, mgr, &server.Config{
				Host:       host,
				Port:       port,
				Logger:     log,
				Pingers:    pingers,
				RateLimit:  getEnvFloat("HRFAQ_RATE_LIMIT", 0),
				RateBurst:  getEnvInt("HRFAQ_RATE_BURST", 0),
				APIKey:     os.Getenv("HRFAQ_API_KEY"),
				IndexReady: holder.Ready,
			}, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

// indexManager owns index builds for the serve command: the initial build at
// startup and rebuilds triggered through POST /api/reindex. Searches keep
// hitting the published index until the swap, so rebuilds cause no downtime.
type indexManager struct {
	mu      sync.Mutex
	dir     string
	backend string
	fitter  embedder.Fitter
	indexer *rag.Indexer
	holder  *rag.Holder
	qcfg    *rag.QdrantConfig
	log     *slog.Logger
}

// Rebuild reloads the corpus from disk, re-embeds it, and publishes the new
// index. Corpus-fitted embedders are refitted first so the new index and
// subsequent queries share one vocabulary.
func (m *indexManager) Rebuild(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, err := corpus.LoadDir(m.dir, m.log)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	fitOnCorpus(m.fitter, docs)
	return m.publishLocked(ctx, docs)
}

// Documents lists the documents in the currently published index.
func (m *indexManager) Documents() ([]rag.DocInfo, error) {
	idx, err := m.holder.Get()
	if err != nil {
		return nil, err
	}
	return idx.Documents(), nil
}

func (m *indexManager) publish(ctx context.Context, docs []corpus.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishLocked(ctx, docs)
}

func (m *indexManager) publishLocked(ctx context.Context, docs []corpus.Document) error {
	var next rag.Index
	switch m.backend {
	case "qdrant":
		chunks, vectors, err := m.indexer.Prepare(ctx, docs)
		if err != nil {
			return err
		}
		qidx, err := rag.NewQdrantIndex(ctx, m.qcfg)
		if err != nil {
			return err
		}
		if err := qidx.Upsert(ctx, chunks, vectors); err != nil {
			_ = qidx.Close()
			return err
		}
		next = qidx
	default:
		idx, err := m.indexer.Build(ctx, docs)
		if err != nil {
			return err
		}
		next = idx
	}

	if old := m.holder.Swap(next); old != nil {
		_ = old.Close()
	}
	m.log.Info("index published",
		slog.String("backend", m.backend),
		slog.Int("chunks", next.Len()),
	)
	return nil
}

// close releases the currently published index, if any.
func (m *indexManager) close() {
	if idx, err := m.holder.Get(); err == nil {
		_ = idx.Close()
	}
}

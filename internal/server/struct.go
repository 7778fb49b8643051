package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/stream"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// IndexReady reports whether the first index build has been published;
	// surfaced as the index_ready flag on GET /api/health. Nil means false.
	IndexReady func() bool
}

// asker is the interface the ask handlers call. *stream.Controller satisfies
// it; tests inject a fake.
type asker interface {
	// Answer runs the full pipeline synchronously.
	Answer(ctx context.Context, req stream.Request) (*stream.Response, error)
	// Run starts a streaming answer run.
	Run(ctx context.Context, req stream.Request) (<-chan stream.Event, error)
}

// indexAdmin exposes the index management operations behind POST /api/reindex
// and GET /api/documents. The serve command provides the production
// implementation; a nil admin disables both endpoints.
type indexAdmin interface {
	// Rebuild reloads the corpus, re-embeds it, and atomically publishes the
	// new index. In-flight searches keep using the old index until the swap.
	Rebuild(ctx context.Context) error
	// Documents lists the documents in the currently published index.
	Documents() ([]rag.DocInfo, error)
}

// Server is the HTTP server that exposes the HR assistant API.
type Server struct {
	// ctrl answers questions; set to the stream controller in production,
	// overridden by a fake in tests.
	ctrl asker
	// admin manages the index; nil disables the admin endpoints.
	admin indexAdmin
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this instance's Prometheus metrics.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Documents lists the indexed documents with their chunk counts.
	Documents []rag.DocInfo `json:"documents"`
	// Count is len(Documents), provided for client convenience.
	Count int `json:"count"`
}

// errorResponse is the JSON error body used by the API handlers.
type errorResponse struct {
	// Error is the human-readable failure reason.
	Error string `json:"error"`
	// Retryable hints that the same request may succeed shortly (e.g. the
	// index is still building).
	Retryable bool `json:"retryable,omitempty"`
}

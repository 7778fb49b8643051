package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/pipeline"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/stream"
)

// handleAsk handles POST /api/ask: the synchronous question endpoint.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req stream.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", false)
		return
	}

	start := time.Now()
	resp, err := s.ctrl.Answer(r.Context(), req)
	if err != nil {
		s.metrics.askRequestsTotal.WithLabelValues(outcomeOf(err)).Inc()
		s.askError(w, err)
		return
	}

	outcome := "ok"
	if resp.OODReject {
		outcome = "deflected"
		s.metrics.oodRejectionsTotal.Inc()
	}
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	s.writeJSON(w, http.StatusOK, resp)
}

// handleAskStream handles POST /api/ask/stream: the SSE question endpoint.
// Each event on the stream is one JSON-encoded data frame; the terminal
// frame has done=true and carries the run metadata.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	var req stream.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", false)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported", false)
		return
	}

	start := time.Now()
	events, err := s.ctrl.Run(r.Context(), req)
	if err != nil {
		s.metrics.askRequestsTotal.WithLabelValues(outcomeOf(err)).Inc()
		s.askError(w, err)
		return
	}

	// Headers commit here; failures past this point ride the stream itself.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.metrics.askActiveStreams.Inc()
	defer s.metrics.askActiveStreams.Dec()

	log := logging.FromContext(r.Context())
	outcome := "ok"
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Error("event encode error", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client went away; the controller unwinds via r.Context().
			log.Debug("stream write failed", "error", err)
			return
		}
		flusher.Flush()

		switch {
		case ev.Type == stream.EventDone && ev.Metadata != nil && ev.Error != "":
			outcome = "error"
		case ev.Type == stream.EventDone && ev.Metadata != nil && ev.OODReject:
			outcome = "deflected"
			s.metrics.oodRejectionsTotal.Inc()
		}
	}

	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// askError maps controller errors to HTTP statuses.
func (s *Server) askError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stream.ErrEmptyQuestion):
		s.writeError(w, http.StatusBadRequest, "question is required", false)
	case errors.Is(err, rag.ErrIndexNotReady):
		w.Header().Set("Retry-After", "5")
		s.writeError(w, http.StatusServiceUnavailable, "index is still building, retry shortly", true)
	case errors.Is(err, rag.ErrEmbeddingUnavailable):
		s.writeError(w, http.StatusBadGateway, "embedding backend unavailable", true)
	case errors.Is(err, pipeline.ErrGenerationFailed):
		s.writeError(w, http.StatusBadGateway, "generation backend unavailable", true)
	default:
		s.writeError(w, http.StatusInternalServerError, "internal error", false)
	}
}

// outcomeOf buckets an error for the request counter.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, stream.ErrEmptyQuestion):
		return "bad_request"
	case errors.Is(err, rag.ErrIndexNotReady):
		return "not_ready"
	default:
		return "error"
	}
}

// handleReindex handles POST /api/reindex: rebuilds and republishes the index.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.admin == nil {
		s.writeError(w, http.StatusServiceUnavailable, "reindex unavailable", false)
		return
	}
	log := logging.FromContext(r.Context())
	start := time.Now()
	if err := s.admin.Rebuild(r.Context()); err != nil {
		log.Error("reindex failed", "error", err)
		s.metrics.reindexTotal.WithLabelValues("error").Inc()
		s.writeError(w, http.StatusInternalServerError, "reindex failed", true)
		return
	}
	s.metrics.reindexTotal.WithLabelValues("ok").Inc()
	log.Info("reindex complete", "duration", time.Since(start))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDocuments handles GET /api/documents: lists indexed documents.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if s.admin == nil {
		s.writeError(w, http.StatusServiceUnavailable, "document listing unavailable", false)
		return
	}
	docs, err := s.admin.Documents()
	if err != nil {
		if errors.Is(err, rag.ErrIndexNotReady) {
			w.Header().Set("Retry-After", "5")
			s.writeError(w, http.StatusServiceUnavailable, "index is still building, retry shortly", true)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "document listing failed", false)
		return
	}
	s.writeJSON(w, http.StatusOK, documentsResponse{Documents: docs, Count: len(docs)})
}

package stream

import "github.com/Farx1/hrfaq-go/internal/pipeline"

// EventType discriminates events on an answer stream.
type EventType string

const (
	// EventChunk carries an incremental fragment of the answer.
	EventChunk EventType = "chunk"
	// EventDone terminates the stream and carries the run metadata.
	// Mid-run failures are done events with Metadata.Error set.
	EventDone EventType = "done"
)

// Metadata summarizes a finished run. It rides only on the terminal event.
type Metadata struct {
	// OODReject is true when the domain gate deflected the question.
	OODReject bool `json:"ood_reject,omitempty"`
	// Confidence is the top retrieval similarity, clamped to [0,1].
	Confidence float64 `json:"confidence"`
	// LatencyMS is wall time from admission to terminal, in milliseconds.
	LatencyMS int64 `json:"latency_ms"`
	// Sources attributes the answer to corpus documents.
	Sources []pipeline.Source `json:"sources,omitempty"`
	// Company is the company the corpus belongs to.
	Company string `json:"company,omitempty"`
	// Error is non-empty when the run failed mid-stream.
	Error string `json:"error,omitempty"`
}

// Event is one server-sent event on an answer stream. Metadata is nil on
// chunk events so its fields stay out of the wire format until the end.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Done    bool      `json:"done"`
	*Metadata
}

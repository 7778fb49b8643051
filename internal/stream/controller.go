// Package stream orchestrates answer runs: domain gating, retrieval,
// generation, and incremental delivery, with conversation history threaded
// through per session. Runs move through an explicit state machine so the
// server can observe and log phase transitions.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Farx1/hrfaq-go/internal/gate"
	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/pipeline"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/store"
)

// ErrEmptyQuestion rejects blank input before a run starts.
var ErrEmptyQuestion = errors.New("stream: question must not be empty")

// DefaultHistoryDepth is how many prior turns are threaded into the prompt.
const DefaultHistoryDepth = 6

// persistTimeout bounds history writes after the response is already sent.
const persistTimeout = 5 * time.Second

// Request is a single question from a client.
type Request struct {
	// Question is the employee's question.
	Question string `json:"question"`
	// SessionID threads conversation history; empty means stateless.
	SessionID string `json:"session_id,omitempty"`
	// Category optionally restricts retrieval to one corpus category.
	Category string `json:"category,omitempty"`
	// TopK overrides the retriever's configured k when positive.
	TopK int `json:"top_k,omitempty"`
}

// Response is the synchronous answer form.
type Response struct {
	Answer     string            `json:"answer"`
	OODReject  bool              `json:"ood_reject,omitempty"`
	Confidence float64           `json:"confidence"`
	Sources    []pipeline.Source `json:"sources,omitempty"`
	Company    string            `json:"company,omitempty"`
	LatencyMS  int64             `json:"latency_ms"`
}

// Controller runs the question-answering state machine.
type Controller struct {
	gate         gate.Gate
	retriever    *rag.Retriever
	pipe         *pipeline.Pipeline
	hist         store.ConversationStore
	company      string
	historyDepth int
	log          *slog.Logger
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Gate         gate.Gate
	Retriever    *rag.Retriever
	Pipeline     *pipeline.Pipeline
	History      store.ConversationStore
	Company      string
	HistoryDepth int
	Logger       *slog.Logger
}

// NewController constructs a Controller. A nil history store disables
// conversation threading; a zero history depth gets the default.
func NewController(cfg ControllerConfig) *Controller {
	hist := cfg.History
	if hist == nil {
		hist = store.NoopStore{}
	}
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{
		gate:         cfg.Gate,
		retriever:    cfg.Retriever,
		pipe:         cfg.Pipeline,
		hist:         hist,
		company:      cfg.Company,
		historyDepth: depth,
		log:          log,
	}
}

// run tracks one question through the state machine.
type run struct {
	c       *Controller
	state   State
	started time.Time
}

func (r *run) advance(to State) {
	if !CanTransition(r.state, to) {
		// Transition table bug; log loudly rather than corrupt the run.
		r.c.log.Error("invalid state transition",
			slog.String("from", r.state.String()), slog.String("to", to.String()))
	}
	r.c.log.Debug("run state",
		slog.String("from", r.state.String()), slog.String("to", to.String()))
	r.state = to
}

func (r *run) latencyMS() int64 {
	return time.Since(r.started).Milliseconds()
}

// admit validates the request and runs the domain gate. It returns the
// normalized question and whether the gate admitted it.
func (c *Controller) admit(req Request) (string, bool, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", false, ErrEmptyQuestion
	}
	return question, c.gate.Admit(question), nil
}

// retrieve loads history and searches the corpus for an admitted question.
func (c *Controller) retrieve(ctx context.Context, req Request, question string) ([]rag.Scored, []store.Message, error) {
	var history []store.Message
	if req.SessionID != "" {
		var err error
		history, err = c.hist.Recent(ctx, req.SessionID, c.historyDepth)
		if err != nil {
			// History is best-effort; answer without it.
			c.log.Warn("history load failed",
				slog.String("session", req.SessionID), slog.String("error", err.Error()))
			history = nil
		}
	}

	k := req.TopK
	if k <= 0 {
		k = c.retriever.TopK()
	}
	results, err := c.retriever.Retrieve(ctx, rag.NewQuery(question), k, req.Category)
	if err != nil {
		return nil, nil, fmt.Errorf("stream: retrieve: %w", err)
	}
	return results, history, nil
}

// persist appends the turn to the session history. It runs after the
// response is sent, so it gets its own deadline detached from the request.
func (c *Controller) persist(ctx context.Context, sessionID, question, answer string) {
	if sessionID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := c.hist.Append(ctx, sessionID, store.RoleUser, question); err != nil {
		c.log.Warn("history append failed", slog.String("error", err.Error()))
		return
	}
	if err := c.hist.Append(ctx, sessionID, store.RoleAssistant, answer); err != nil {
		c.log.Warn("history append failed", slog.String("error", err.Error()))
	}
}

// Answer runs the full pipeline synchronously and returns the complete
// response. Out-of-domain questions get the canned deflection with no
// retrieval or generation. Returns rag.ErrIndexNotReady before the first
// index build completes.
func (c *Controller) Answer(ctx context.Context, req Request) (*Response, error) {
	r := &run{c: c, state: StateIdle, started: time.Now()}
	r.advance(StateAdmitting)

	question, admitted, err := c.admit(req)
	if err != nil {
		return nil, err
	}
	if !admitted {
		r.advance(StateRejected)
		r.advance(StateTerminal)
		c.log.Info("question deflected", slog.String("question", question))
		return &Response{
			Answer:    gate.DeflectionMessage,
			OODReject: true,
			Company:   c.company,
			LatencyMS: r.latencyMS(),
		}, nil
	}

	if !c.retriever.Ready() {
		return nil, rag.ErrIndexNotReady
	}

	r.advance(StateRetrieving)
	results, history, err := c.retrieve(ctx, req, question)
	if err != nil {
		r.advance(StateTerminal)
		return nil, err
	}

	r.advance(StateGenerating)
	answer, err := c.pipe.Generate(ctx, question, results, store.AsMessages(history))
	if err != nil {
		r.advance(StateTerminal)
		return nil, err
	}
	r.advance(StateTerminal)

	c.persist(ctx, req.SessionID, question, answer)
	return &Response{
		Answer:     answer,
		Confidence: pipeline.Confidence(results),
		Sources:    pipeline.Sources(results),
		Company:    c.company,
		LatencyMS:  r.latencyMS(),
	}, nil
}

// Run starts a streaming answer. Pre-flight failures (blank question, index
// not ready) return an error immediately with no channel; otherwise the
// returned channel carries chunk events followed by exactly one terminal
// event, and is closed when the run ends or ctx is cancelled.
func (c *Controller) Run(ctx context.Context, req Request) (<-chan Event, error) {
	r := &run{c: c, state: StateIdle, started: time.Now()}
	r.advance(StateAdmitting)

	question, admitted, err := c.admit(req)
	if err != nil {
		return nil, err
	}
	if admitted && !c.retriever.Ready() {
		return nil, rag.ErrIndexNotReady
	}

	events := make(chan Event, 1)
	go func() {
		defer close(events)

		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !admitted {
			r.advance(StateRejected)
			c.log.Info("question deflected", slog.String("question", question))
			if !send(Event{Type: EventChunk, Content: gate.DeflectionMessage}) {
				return
			}
			r.advance(StateTerminal)
			send(Event{Type: EventDone, Done: true, Metadata: &Metadata{
				OODReject: true,
				Company:   c.company,
				LatencyMS: r.latencyMS(),
			}})
			return
		}

		r.advance(StateRetrieving)
		results, history, err := c.retrieve(ctx, req, question)
		if err != nil {
			r.advance(StateTerminal)
			send(Event{Type: EventDone, Done: true, Metadata: &Metadata{
				Error:     err.Error(),
				LatencyMS: r.latencyMS(),
			}})
			return
		}

		r.advance(StateGenerating)
		r.advance(StateStreaming)
		answer, err := c.pipe.GenerateStream(ctx, question, results, store.AsMessages(history), func(fragment string) {
			send(Event{Type: EventChunk, Content: fragment})
		})
		r.advance(StateTerminal)
		if err != nil {
			send(Event{Type: EventDone, Done: true, Metadata: &Metadata{
				Error:     err.Error(),
				LatencyMS: r.latencyMS(),
			}})
			return
		}

		c.persist(ctx, req.SessionID, question, answer)
		send(Event{Type: EventDone, Done: true, Metadata: &Metadata{
			Confidence: pipeline.Confidence(results),
			Sources:    pipeline.Sources(results),
			Company:    c.company,
			LatencyMS:  r.latencyMS(),
		}})
	}()
	return events, nil
}

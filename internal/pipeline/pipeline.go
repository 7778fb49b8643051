// Package pipeline turns a question plus retrieved policy excerpts into a
// final answer by dispatching to the configured chat model through the
// active prompt strategy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/strategy"
)

// ErrGenerationFailed wraps chat model errors so callers can map them to a
// retryable status without inspecting provider-specific error types.
var ErrGenerationFailed = errors.New("pipeline: generation failed")

// snippetLen bounds the excerpt text echoed back in source attributions.
const snippetLen = 200

// Source attributes part of an answer to a corpus document.
type Source struct {
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
}

// answerMarkerer is implemented by strategies whose PostProcess strips a
// scaffold before a marker. The streaming path buffers until the marker
// arrives so partial scaffold text never reaches clients.
type answerMarkerer interface {
	AnswerMarker() string
}

// Pipeline generates answers with a fixed model and strategy pairing.
type Pipeline struct {
	model model.BaseChatModel
	strat strategy.Strategy
}

// New constructs a Pipeline.
func New(m model.BaseChatModel, strat strategy.Strategy) *Pipeline {
	return &Pipeline{model: m, strat: strat}
}

// Strategy returns the active prompt strategy.
func (p *Pipeline) Strategy() strategy.Strategy { return p.strat }

// Generate produces the complete post-processed answer in one call.
func (p *Pipeline) Generate(ctx context.Context, question string, retrieved []rag.Scored, history []*schema.Message) (string, error) {
	msgs := p.strat.Compose(question, retrieved, history)
	resp, err := p.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return p.strat.PostProcess(resp.Content), nil
}

// GenerateStream produces the answer incrementally, calling emit for each
// new fragment of post-processed text, and returns the full answer. The
// emitted fragments concatenate to exactly the value Generate would return
// for the same inputs: emission is monotone over post-processed prefixes,
// and scaffold text held by marker strategies is never emitted.
func (p *Pipeline) GenerateStream(ctx context.Context, question string, retrieved []rag.Scored, history []*schema.Message, emit func(string)) (string, error) {
	log := logging.FromContext(ctx)

	msgs := p.strat.Compose(question, retrieved, history)
	sr, err := p.model.Stream(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	defer sr.Close()

	marker := ""
	if am, ok := p.strat.(answerMarkerer); ok {
		marker = am.AnswerMarker()
	}

	var raw strings.Builder
	emitted := ""
	markerSeen := marker == ""

	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("model stream interrupted", slog.String("error", err.Error()))
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		raw.WriteString(msg.Content)

		if !markerSeen {
			if !strings.Contains(raw.String(), marker) {
				continue
			}
			markerSeen = true
		}

		processed := p.strat.PostProcess(raw.String())
		if strings.HasPrefix(processed, emitted) && len(processed) > len(emitted) {
			emit(processed[len(emitted):])
			emitted = processed
		}
	}

	final := p.strat.PostProcess(raw.String())
	if rest := strings.TrimPrefix(final, emitted); rest != "" && strings.HasPrefix(final, emitted) {
		emit(rest)
	}
	return final, nil
}

// Confidence maps retrieval results to a [0,1] answer confidence: the top
// similarity score, clamped. No results means no confidence.
func Confidence(results []rag.Scored) float64 {
	if len(results) == 0 {
		return 0
	}
	c := results[0].Score
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Sources converts retrieval results into client-facing attributions.
func Sources(results []rag.Scored) []Source {
	out := make([]Source, 0, len(results))
	for _, r := range results {
		snippet := r.Chunk.Text
		if len(snippet) > snippetLen {
			cut := snippetLen
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			snippet = snippet[:cut] + "..."
		}
		out = append(out, Source{
			Title:      r.Chunk.Title,
			Snippet:    snippet,
			Category:   r.Chunk.Category,
			Similarity: r.Score,
		})
	}
	return out
}

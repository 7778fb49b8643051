// Package strategy implements prompt composition for the answer pipeline.
// A Strategy turns (question, retrieved context, history) into the message
// list sent to the chat model, and post-processes the raw model output into
// the final answer. Two strategies ship: baseline (plain instruction +
// context) and optimized (seeded few-shot exemplars + reasoning scaffold).
// Which one serves is configuration, not code branching.
package strategy

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Farx1/hrfaq-go/internal/budget"
	"github.com/Farx1/hrfaq-go/internal/rag"
)

// Strategy names.
const (
	NameBaseline  = "baseline"
	NameOptimized = "optimized"
)

// Strategy composes prompts and cleans up model output. Implementations are
// immutable after construction and safe for concurrent use.
type Strategy interface {
	// Name identifies the strategy in logs, records and reports.
	Name() string

	// Compose builds the message list for the chat model. context is ordered
	// by retrieval rank; history is oldest-first prior turns.
	Compose(question string, context []rag.Scored, history []*schema.Message) []*schema.Message

	// PostProcess turns raw model output into the final answer text.
	PostProcess(raw string) string
}

// Config holds shared strategy settings.
type Config struct {
	// Company is the company name woven into the system prompt.
	Company string

	// MaxContextChars bounds the retrieved excerpt block. Defaults to
	// budget.DefaultMaxContextChars.
	MaxContextChars int

	// MaxContextTokens bounds the whole prompt for history trimming.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int

	// Seed drives exemplar sampling in the optimized strategy.
	Seed int64

	// FewShot is the number of exemplars the optimized strategy injects.
	// Defaults to DefaultFewShot.
	FewShot int

	// Exemplars overrides the built-in exemplar pool.
	Exemplars []Exemplar
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.MaxContextChars <= 0 {
		out.MaxContextChars = budget.DefaultMaxContextChars
	}
	if out.MaxContextTokens <= 0 {
		out.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	if out.FewShot <= 0 {
		out.FewShot = DefaultFewShot
	}
	if len(out.Exemplars) == 0 {
		out.Exemplars = DefaultExemplars
	}
	return &out
}

// New constructs the named strategy.
func New(name string, cfg *Config) (Strategy, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	switch name {
	case NameBaseline, "":
		return NewBaseline(cfg), nil
	case NameOptimized:
		return NewOptimized(cfg), nil
	default:
		return nil, fmt.Errorf("strategy: unknown strategy %q — valid values: %s, %s", name, NameBaseline, NameOptimized)
	}
}

// systemPrompt is the shared instruction preamble.
func systemPrompt(company string) string {
	if company == "" {
		company = "the company"
	}
	return fmt.Sprintf("You are a professional HR assistant for %s. "+
		"Answer the employee's question clearly and concisely, using only the provided HR policy excerpts. "+
		"If the excerpts do not cover the question, say so and refer the employee to the HR portal.", company)
}

// contextBlock renders the retrieved chunks as a policy excerpt block,
// trimmed to maxChars lowest-ranked-first. Empty retrieval renders an
// explicit marker so the model knows nothing relevant was found.
func contextBlock(results []rag.Scored, maxChars int) string {
	results = budget.TrimContext(results, maxChars)
	if len(results) == 0 {
		return "Relevant HR policy excerpts:\n(none found)"
	}

	var b strings.Builder
	b.WriteString("Relevant HR policy excerpts:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "\n[%s — %s]\n%s\n", r.Chunk.Title, r.Chunk.Section, strings.TrimSpace(r.Chunk.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}

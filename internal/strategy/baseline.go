package strategy

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Farx1/hrfaq-go/internal/budget"
	"github.com/Farx1/hrfaq-go/internal/rag"
)

// Baseline is the unoptimized strategy: static instruction, retrieved
// context, history, question. It is the control arm of every benchmark run.
type Baseline struct {
	cfg *Config
}

// NewBaseline constructs the baseline strategy.
func NewBaseline(cfg *Config) *Baseline {
	return &Baseline{cfg: cfg.withDefaults()}
}

// Name implements Strategy.
func (s *Baseline) Name() string { return NameBaseline }

// Compose implements Strategy.
func (s *Baseline) Compose(question string, context []rag.Scored, history []*schema.Message) []*schema.Message {
	system := schema.SystemMessage(systemPrompt(s.cfg.Company) + "\n\n" + contextBlock(context, s.cfg.MaxContextChars))
	user := schema.UserMessage(question)

	fixed := []*schema.Message{system, user}
	history = budget.TrimHistory(fixed, history, s.cfg.MaxContextTokens)

	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, system)
	msgs = append(msgs, history...)
	msgs = append(msgs, user)
	return msgs
}

// PostProcess implements Strategy.
func (s *Baseline) PostProcess(raw string) string {
	return strings.TrimSpace(raw)
}

var _ Strategy = (*Baseline)(nil)

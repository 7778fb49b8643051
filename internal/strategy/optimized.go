package strategy

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Farx1/hrfaq-go/internal/budget"
	"github.com/Farx1/hrfaq-go/internal/rag"
)

// answerMarker separates the reasoning scaffold from the final answer in
// optimized-strategy output.
const answerMarker = "Answer:"

// scaffold instructs the model to reason before answering; PostProcess
// strips everything before the marker.
const scaffold = "First think through which policy details apply, then give the final answer. " +
	"Respond in exactly this format:\nReasoning: <brief reasoning>\n" + answerMarker + " <the answer>"

// Optimized is the tuned strategy: it prepends few-shot exemplars chosen by
// a seeded RNG and ordered by lexical relevance to the question, and wraps
// generation in a reasoning scaffold. Identical (seed, question) pairs
// always select and order the same exemplars.
type Optimized struct {
	cfg *Config
}

// NewOptimized constructs the optimized strategy.
func NewOptimized(cfg *Config) *Optimized {
	return &Optimized{cfg: cfg.withDefaults()}
}

// Name implements Strategy.
func (s *Optimized) Name() string { return NameOptimized }

// Compose implements Strategy.
func (s *Optimized) Compose(question string, context []rag.Scored, history []*schema.Message) []*schema.Message {
	system := schema.SystemMessage(systemPrompt(s.cfg.Company) + "\n\n" + scaffold + "\n\n" +
		contextBlock(context, s.cfg.MaxContextChars))
	user := schema.UserMessage(question)

	shots := s.selectExemplars(question)
	demo := make([]*schema.Message, 0, len(shots)*2)
	for _, ex := range shots {
		demo = append(demo,
			schema.UserMessage(ex.Question),
			schema.AssistantMessage(
				"Reasoning: The policy excerpts address this directly.\n"+answerMarker+" "+ex.Answer, nil),
		)
	}

	fixed := make([]*schema.Message, 0, len(demo)+2)
	fixed = append(fixed, system)
	fixed = append(fixed, demo...)
	fixed = append(fixed, user)
	history = budget.TrimHistory(fixed, history, s.cfg.MaxContextTokens)

	msgs := make([]*schema.Message, 0, len(fixed)+len(history))
	msgs = append(msgs, system)
	msgs = append(msgs, demo...)
	msgs = append(msgs, history...)
	msgs = append(msgs, user)
	return msgs
}

// AnswerMarker returns the scaffold marker PostProcess keys on. Streaming
// consumers buffer model output until the marker appears so partial
// reasoning text is never surfaced to clients.
func (s *Optimized) AnswerMarker() string { return answerMarker }

// PostProcess implements Strategy. It strips the reasoning scaffold,
// returning only the text after the answer marker. Output without the
// marker is passed through trimmed — models don't always comply.
func (s *Optimized) PostProcess(raw string) string {
	if i := strings.Index(raw, answerMarker); i >= 0 {
		return strings.TrimSpace(raw[i+len(answerMarker):])
	}
	return strings.TrimSpace(raw)
}

// selectExemplars samples FewShot exemplars with an RNG seeded from the
// configured seed and the question, then orders them most-relevant-first
// by token overlap with the question, ties broken by pool position.
func (s *Optimized) selectExemplars(question string) []Exemplar {
	pool := s.cfg.Exemplars
	k := s.cfg.FewShot
	if k >= len(pool) {
		k = len(pool)
	}
	if k == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed ^ int64(questionHash(question))))
	picked := rng.Perm(len(pool))[:k]
	sort.Ints(picked)

	type ranked struct {
		idx     int
		overlap int
	}
	rankedShots := make([]ranked, 0, k)
	qTokens := tokenSet(question)
	for _, idx := range picked {
		rankedShots = append(rankedShots, ranked{idx: idx, overlap: overlapCount(qTokens, pool[idx].Question)})
	}
	sort.SliceStable(rankedShots, func(i, j int) bool {
		if rankedShots[i].overlap != rankedShots[j].overlap {
			return rankedShots[i].overlap > rankedShots[j].overlap
		}
		return rankedShots[i].idx < rankedShots[j].idx
	})

	out := make([]Exemplar, 0, k)
	for _, r := range rankedShots {
		out = append(out, pool[r.idx])
	}
	return out
}

// questionHash folds a question into a 63-bit value for seed mixing.
func questionHash(q string) uint64 {
	h := fnv.New64a()
	fmt.Fprint(h, strings.ToLower(strings.TrimSpace(q)))
	return h.Sum64() >> 1
}

// tokenSet lowercases and splits text into a word set.
func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(f, ".,!?:;\"'()")] = true
	}
	return set
}

// overlapCount counts how many words of text appear in the query set.
func overlapCount(query map[string]bool, text string) int {
	n := 0
	for _, f := range strings.Fields(strings.ToLower(text)) {
		if query[strings.Trim(f, ".,!?:;\"'()")] {
			n++
		}
	}
	return n
}

var _ Strategy = (*Optimized)(nil)

// Package budget provides token and character budget management for prompt
// composition. Because the assistant supports multiple LLM backends with
// different tokenizers, it uses a conservative character-based heuristic:
// 1 token ≈ 4 characters (English prose). This deliberately under-estimates
// token counts to leave headroom for model-specific overhead.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/Farx1/hrfaq-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the output. Override via the strategy configuration.
	DefaultMaxContextTokens = 6000

	// DefaultMaxContextChars is the character budget for the retrieved
	// policy excerpts injected into the prompt.
	DefaultMaxContextChars = 2000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory removes the oldest messages from history until the total
// estimated token count of fixed + history fits within maxTokens.
// fixed contains messages that must not be trimmed (system prompt, policy
// context, current user message). history contains prior conversation turns
// that may be dropped oldest-first.
//
// Returns the trimmed history slice. If even an empty history exceeds the
// budget, the empty slice is returned (fixed messages are never dropped here —
// callers should warn separately if fixed alone exceeds the budget).
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)

	// History is typically ≤20 messages; a linear scan dropping oldest-first
	// is clear and correct.
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		// Drop the oldest message.
		history = history[1:]
	}
	return history
}

// TrimContext drops the lowest-ranked retrieved chunks until the combined
// text length fits within maxChars. The top-ranked chunk always survives,
// truncated to the budget if it alone exceeds it — an answer grounded in a
// clipped excerpt beats one grounded in nothing.
func TrimContext(results []rag.Scored, maxChars int) []rag.Scored {
	if len(results) == 0 || maxChars <= 0 {
		return results
	}

	kept := make([]rag.Scored, 0, len(results))
	used := 0
	for _, r := range results {
		if used+len(r.Chunk.Text) > maxChars {
			break
		}
		kept = append(kept, r)
		used += len(r.Chunk.Text)
	}

	if len(kept) == 0 {
		top := results[0]
		top.Chunk.Text = truncate(top.Chunk.Text, maxChars)
		kept = append(kept, top)
	}
	return kept
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

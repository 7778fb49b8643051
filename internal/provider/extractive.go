package provider

import (
	"context"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	contextHeader  = "Relevant HR policy excerpts:"
	scaffoldMarker = "Reasoning:"
	answerMarker   = "Answer:"

	maxExtractedLines = 20
	fallbackChars     = 800

	defaultCompany = "TechCorp Solutions"

	// streamChunkWords controls how many words each streamed message carries.
	streamChunkWords = 6
)

// ExtractiveModel is a chat model that answers by reformatting the retrieved
// policy excerpts rather than generating free text. It is fully deterministic:
// the same message slice always yields the same answer, which makes it the
// default backend for tests and benchmarks.
type ExtractiveModel struct {
	company string
}

// NewExtractive constructs an extractive model. An empty company falls back
// to the stock corpus company name.
func NewExtractive(company string) *ExtractiveModel {
	if company == "" {
		company = defaultCompany
	}
	return &ExtractiveModel{company: company}
}

// Generate implements model.BaseChatModel.
func (m *ExtractiveModel) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return schema.AssistantMessage(m.answer(in), nil), nil
}

// Stream implements model.BaseChatModel. The answer is split into word
// chunks so downstream consumers exercise the same incremental path a live
// model produces; concatenating the chunks reproduces Generate's output.
func (m *ExtractiveModel) Stream(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks := splitWords(m.answer(in), streamChunkWords)
	msgs := make([]*schema.Message, 0, len(chunks))
	for _, c := range chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

// answer builds the full response text from the composed messages.
func (m *ExtractiveModel) answer(in []*schema.Message) string {
	question := lastUserContent(in)
	system := systemContent(in)
	excerpts := contextFrom(system)

	body := m.format(question, excerpts)
	if strings.Contains(system, scaffoldMarker) && strings.Contains(system, answerMarker) {
		return scaffoldMarker + " The retrieved policy excerpts cover this question.\n" + answerMarker + " " + body
	}
	return body
}

// format reshapes raw excerpt text into a readable answer: bullet points,
// numbered items, tables, and bold-highlighted lines survive; headers and
// source tags are dropped. Excerpt-free questions get an honest fallback.
func (m *ExtractiveModel) format(question, excerpts string) string {
	if strings.TrimSpace(excerpts) == "" || excerpts == "(none found)" {
		return "I could not find a policy covering that. Please contact HR directly for help with this question."
	}

	var parts []string
	parts = append(parts, "Based on "+m.company+"' HR policies:\n")

	var relevant []string
	inTable := false
	for _, line := range strings.Split(excerpts, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "##"):
			continue
		case strings.HasPrefix(line, "|"):
			inTable = true
			relevant = append(relevant, line)
		case inTable:
			inTable = false
			relevant = append(relevant, "")
			if isListLine(line) {
				relevant = append(relevant, line)
			}
		case isListLine(line):
			relevant = append(relevant, line)
		case strings.Contains(line, "**"):
			relevant = append(relevant, line)
		}
	}

	if len(relevant) > 0 {
		if len(relevant) > maxExtractedLines {
			relevant = relevant[:maxExtractedLines]
		}
		parts = append(parts, strings.Join(relevant, "\n"))
	} else {
		clean := excerpts
		if len(clean) > fallbackChars {
			clean = clean[:fallbackChars]
		}
		parts = append(parts, clean)
	}

	parts = append(parts, "\n\nFor more details, visit the HR Portal or contact your HR representative.")
	return strings.Join(parts, "\n")
}

// isListLine reports whether the line is a bullet or numbered list item.
func isListLine(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
		return true
	}
	return unicode.IsDigit(rune(line[0]))
}

// lastUserContent returns the content of the final user message.
func lastUserContent(in []*schema.Message) string {
	for i := len(in) - 1; i >= 0; i-- {
		if in[i] != nil && in[i].Role == schema.User {
			return in[i].Content
		}
	}
	return ""
}

// systemContent returns the content of the first system message.
func systemContent(in []*schema.Message) string {
	for _, msg := range in {
		if msg != nil && msg.Role == schema.System {
			return msg.Content
		}
	}
	return ""
}

// contextFrom extracts the policy-excerpt block embedded in the system prompt.
func contextFrom(system string) string {
	i := strings.Index(system, contextHeader)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(system[i+len(contextHeader):])
}

// splitWords slices text into chunks of at most n words, preserving the
// original whitespace so the concatenation equals the input.
func splitWords(text string, n int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	var b strings.Builder
	words := 0
	inWord := false
	for _, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inWord {
			if words == n {
				chunks = append(chunks, b.String())
				b.Reset()
				words = 0
			}
			words++
		}
		inWord = !space
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

var _ model.BaseChatModel = (*ExtractiveModel)(nil)

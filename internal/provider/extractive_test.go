package provider

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func composed(system, question string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(question),
	}
}

const sampleSystem = `You are an HR assistant for Acme Corp.

Relevant HR policy excerpts:

[Leave Policy — Annual Leave]
## Annual Leave
- Employees accrue 20 days per year
- Unused days carry over up to 5 days
**Approval** is required two weeks in advance.

| Tenure | Days |
|--------|------|
| 0-2y   | 20   |
Plain narrative sentence that should be dropped.`

func TestExtractive_Generate(t *testing.T) {
	t.Parallel()

	m := NewExtractive("Acme Corp")
	msg, err := m.Generate(context.Background(), composed(sampleSystem, "How much vacation do I get?"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Role != schema.Assistant {
		t.Errorf("role = %v, want assistant", msg.Role)
	}
	if !strings.Contains(msg.Content, "Based on Acme Corp' HR policies:") {
		t.Errorf("missing intro: %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "- Employees accrue 20 days per year") {
		t.Error("bullet lines should survive extraction")
	}
	if !strings.Contains(msg.Content, "| Tenure | Days |") {
		t.Error("table lines should survive extraction")
	}
	if !strings.Contains(msg.Content, "**Approval**") {
		t.Error("bold lines should survive extraction")
	}
	if strings.Contains(msg.Content, "## Annual Leave") {
		t.Error("section headers must be dropped")
	}
	if strings.Contains(msg.Content, "[Leave Policy") {
		t.Error("source tags must be dropped")
	}
	if strings.Contains(msg.Content, "Plain narrative sentence") {
		t.Error("plain prose outside lists must be dropped")
	}
}

func TestExtractive_Deterministic(t *testing.T) {
	t.Parallel()

	m := NewExtractive("")
	in := composed(sampleSystem, "vacation?")
	a, err := m.Generate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Generate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if a.Content != b.Content {
		t.Error("identical inputs must produce identical answers")
	}
}

func TestExtractive_NoContext(t *testing.T) {
	t.Parallel()

	m := NewExtractive("")
	msg, err := m.Generate(context.Background(),
		composed("You are an HR assistant.\n\nRelevant HR policy excerpts:\n\n(none found)", "anything"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg.Content, "contact HR directly") {
		t.Errorf("missing fallback answer: %q", msg.Content)
	}
}

func TestExtractive_FallbackProse(t *testing.T) {
	t.Parallel()

	// No bullets, tables, or bold lines: fall back to raw excerpt text.
	system := "assistant\n\nRelevant HR policy excerpts:\n\nThe handbook describes remote work arrangements in general prose."
	m := NewExtractive("")
	msg, err := m.Generate(context.Background(), composed(system, "remote work?"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg.Content, "remote work arrangements") {
		t.Errorf("fallback should include excerpt prose: %q", msg.Content)
	}
}

func TestExtractive_ScaffoldFormat(t *testing.T) {
	t.Parallel()

	system := sampleSystem + "\n\nRespond in exactly this format:\nReasoning: <brief reasoning>\nAnswer: <the answer>"
	m := NewExtractive("Acme Corp")
	msg, err := m.Generate(context.Background(), composed(system, "vacation?"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(msg.Content, "Reasoning:") {
		t.Errorf("scaffolded prompt should yield scaffolded output: %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "\nAnswer: Based on Acme Corp' HR policies:") {
		t.Errorf("answer marker missing: %q", msg.Content)
	}
}

func TestExtractive_StreamMatchesGenerate(t *testing.T) {
	t.Parallel()

	m := NewExtractive("Acme Corp")
	in := composed(sampleSystem, "vacation?")

	full, err := m.Generate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	sr, err := m.Stream(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	defer sr.Close()

	var b strings.Builder
	chunks := 0
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		b.WriteString(msg.Content)
		chunks++
	}
	if chunks < 2 {
		t.Errorf("expected multiple stream chunks, got %d", chunks)
	}
	if b.String() != full.Content {
		t.Errorf("streamed concat != sync answer\nstream: %q\nsync:   %q", b.String(), full.Content)
	}
}

func TestExtractive_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewExtractive("")
	if _, err := m.Generate(ctx, composed(sampleSystem, "q")); err == nil {
		t.Error("cancelled context should fail Generate")
	}
	if _, err := m.Stream(ctx, composed(sampleSystem, "q")); err == nil {
		t.Error("cancelled context should fail Stream")
	}
}

func TestSplitWords(t *testing.T) {
	t.Parallel()

	text := "one two three four five six seven"
	chunks := splitWords(text, 3)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Errorf("concat %q != input", strings.Join(chunks, ""))
	}
	if splitWords("", 3) != nil {
		t.Error("empty input should yield no chunks")
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg := ConfigFromEnv()
	if cfg.Backend != BackendExtractive {
		t.Errorf("default backend = %q, want extractive", cfg.Backend)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("default max tokens = %d", cfg.MaxTokens)
	}
}

func TestConfigFromEnv_Ollama(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "mistral")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOllama {
		t.Fatalf("backend = %q", cfg.Backend)
	}
	if cfg.Model != "mistral" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("base URL = %q", cfg.BaseURL)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), &Config{Backend: "quantum"}); err == nil {
		t.Error("unknown backend should error")
	}
}

func TestNew_Extractive(t *testing.T) {
	t.Parallel()

	m, err := New(context.Background(), &Config{Backend: BackendExtractive, Company: "Acme Corp"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*ExtractiveModel); !ok {
		t.Errorf("got %T, want *ExtractiveModel", m)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := New(ctx, &Config{Backend: BackendOpenAI}); err == nil {
		t.Error("openai without API key should error")
	}
	if _, err := New(ctx, &Config{Backend: BackendGemini}); err == nil {
		t.Error("gemini without API key should error")
	}
	if _, err := New(ctx, &Config{Backend: BackendAzure}); err == nil {
		t.Error("azure without credentials should error")
	}
}

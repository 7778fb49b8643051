package strategy

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/Farx1/hrfaq-go/internal/rag"
)

func retrieved(title, section, text string) rag.Scored {
	return rag.Scored{Chunk: rag.Chunk{Title: title, Section: section, Text: text}, Score: 0.9}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if s, err := New("baseline", nil); err != nil || s.Name() != NameBaseline {
		t.Errorf("New(baseline) = %v, %v", s, err)
	}
	if s, err := New("optimized", nil); err != nil || s.Name() != NameOptimized {
		t.Errorf("New(optimized) = %v, %v", s, err)
	}
	if s, err := New("", nil); err != nil || s.Name() != NameBaseline {
		t.Errorf("New(\"\") should default to baseline, got %v, %v", s, err)
	}
	if _, err := New("fancy", nil); err == nil {
		t.Error("unknown strategy should error")
	}
}

func TestBaseline_Compose(t *testing.T) {
	t.Parallel()

	s := NewBaseline(&Config{Company: "Acme Corp"})
	ctx := []rag.Scored{retrieved("Leave Policy", "Annual Leave", "Employees accrue 20 days per year.")}
	history := []*schema.Message{
		schema.UserMessage("earlier question"),
		schema.AssistantMessage("earlier answer", nil),
	}

	msgs := s.Compose("How much vacation do I get?", ctx, history)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.System {
		t.Errorf("first message role = %v, want system", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "Acme Corp") {
		t.Error("system prompt should mention the company")
	}
	if !strings.Contains(msgs[0].Content, "[Leave Policy — Annual Leave]") {
		t.Error("system prompt should embed the retrieved excerpt header")
	}
	if msgs[len(msgs)-1].Content != "How much vacation do I get?" {
		t.Error("question must be the final message")
	}
}

func TestBaseline_ComposeEmptyContext(t *testing.T) {
	t.Parallel()

	s := NewBaseline(&Config{})
	msgs := s.Compose("question", nil, nil)
	if !strings.Contains(msgs[0].Content, "(none found)") {
		t.Error("empty retrieval should be marked explicitly")
	}
}

func TestBaseline_PostProcess(t *testing.T) {
	t.Parallel()

	s := NewBaseline(&Config{})
	if got := s.PostProcess("  the answer \n"); got != "the answer" {
		t.Errorf("PostProcess = %q", got)
	}
}

func TestOptimized_ComposeIncludesExemplars(t *testing.T) {
	t.Parallel()

	s := NewOptimized(&Config{Seed: 42, FewShot: 3})
	msgs := s.Compose("What is the sick leave policy?", nil, nil)

	// system + 3 user/assistant exemplar pairs + question.
	if len(msgs) != 1+3*2+1 {
		t.Fatalf("expected 8 messages, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "Reasoning:") {
		t.Error("system prompt should carry the reasoning scaffold")
	}
	if msgs[1].Role != schema.User || msgs[2].Role != schema.Assistant {
		t.Error("exemplars should alternate user/assistant")
	}
	if !strings.Contains(msgs[2].Content, answerMarker) {
		t.Error("exemplar answers should demonstrate the scaffold format")
	}
}

func TestOptimized_SelectionDeterministic(t *testing.T) {
	t.Parallel()

	a := NewOptimized(&Config{Seed: 42, FewShot: 4})
	b := NewOptimized(&Config{Seed: 42, FewShot: 4})

	q := "How do I submit an expense report?"
	ma := a.Compose(q, nil, nil)
	mb := b.Compose(q, nil, nil)
	if len(ma) != len(mb) {
		t.Fatalf("message counts differ: %d vs %d", len(ma), len(mb))
	}
	for i := range ma {
		if ma[i].Content != mb[i].Content {
			t.Errorf("message %d differs across identical seeds", i)
		}
	}
}

func TestOptimized_SelectionVariesWithSeed(t *testing.T) {
	t.Parallel()

	q := "What training is available?"
	// Sample 2 of 8 exemplars; across a handful of seeds at least one
	// selection must differ.
	base := NewOptimized(&Config{Seed: 1, FewShot: 2}).Compose(q, nil, nil)
	varied := false
	for seed := int64(2); seed < 10 && !varied; seed++ {
		other := NewOptimized(&Config{Seed: seed, FewShot: 2}).Compose(q, nil, nil)
		for i := range base {
			if base[i].Content != other[i].Content {
				varied = true
				break
			}
		}
	}
	if !varied {
		t.Error("exemplar selection should depend on the seed")
	}
}

func TestOptimized_PostProcessStripsScaffold(t *testing.T) {
	t.Parallel()

	s := NewOptimized(&Config{})
	raw := "Reasoning: the leave policy covers this.\nAnswer: You get 20 days per year."
	if got := s.PostProcess(raw); got != "You get 20 days per year." {
		t.Errorf("PostProcess = %q", got)
	}

	// Non-compliant output passes through trimmed.
	if got := s.PostProcess("  plain text  "); got != "plain text" {
		t.Errorf("PostProcess fallback = %q", got)
	}
}

func TestContextBlock_Budget(t *testing.T) {
	t.Parallel()

	long := retrieved("Doc", "Sec", strings.Repeat("a", 150))
	other := retrieved("Doc2", "Sec2", strings.Repeat("b", 150))
	block := contextBlock([]rag.Scored{long, other}, 200)
	if strings.Contains(block, "Doc2") {
		t.Error("lowest-ranked chunk should be trimmed when over budget")
	}
}

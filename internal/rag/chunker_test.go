package rag

import (
	"strings"
	"testing"

	"github.com/Farx1/hrfaq-go/internal/corpus"
)

func TestChunker_Split(t *testing.T) {
	t.Parallel()

	doc := corpus.Document{
		ID:       "policies/leave.md",
		Title:    "Leave Policy",
		Category: "policy",
		Text: "# Leave Policy\n\nThis document covers all leave entitlements at the company.\n\n" +
			"## Annual Leave\nEmployees accrue 20 days of paid annual leave per calendar year.\n\n" +
			"## Sick Leave\nUp to 10 paid sick days per year; a medical note is required after 3 consecutive days.\n",
	}

	chunks := NewChunker(0, 0).Split(doc)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	if chunks[0].Section != "Leave Policy" {
		t.Errorf("preamble section = %q, want document title", chunks[0].Section)
	}
	if chunks[1].Section != "Annual Leave" {
		t.Errorf("chunks[1].Section = %q, want Annual Leave", chunks[1].Section)
	}
	if chunks[2].Section != "Sick Leave" {
		t.Errorf("chunks[2].Section = %q, want Sick Leave", chunks[2].Section)
	}
	for i, c := range chunks {
		if c.Offset != i {
			t.Errorf("chunks[%d].Offset = %d", i, c.Offset)
		}
		if c.DocumentID != doc.ID || c.Category != "policy" {
			t.Errorf("chunks[%d] metadata wrong: %+v", i, c)
		}
	}
}

func TestChunker_SkipsShortSections(t *testing.T) {
	t.Parallel()

	doc := corpus.Document{
		ID:    "a.md",
		Title: "A",
		Text:  "## Stub\nok\n\n## Real Section\nThis section is comfortably longer than the minimum chunk length filter.\n",
	}
	chunks := NewChunker(0, 0).Split(doc)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Section != "Real Section" {
		t.Errorf("kept section = %q", chunks[0].Section)
	}
}

func TestChunker_BoundsLongSections(t *testing.T) {
	t.Parallel()

	long := "## Handbook\n" + strings.Repeat("All employees must follow the code of conduct. ", 40)
	doc := corpus.Document{ID: "h.md", Title: "H", Text: long}

	c := NewChunker(300, 50)
	chunks := c.Split(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch.Text) > 300 {
			t.Errorf("chunk %d exceeds size bound: %d chars", i, len(ch.Text))
		}
	}
	// Consecutive chunks share the overlap region.
	first, second := chunks[0].Text, chunks[1].Text
	if !strings.HasPrefix(second, first[len(first)-50:]) {
		t.Error("second chunk does not start with the overlap of the first")
	}
}

func TestChunker_Deterministic(t *testing.T) {
	t.Parallel()

	doc := corpus.Document{
		ID:    "b.md",
		Title: "B",
		Text:  "## Benefits\nFull medical, dental and vision coverage begins on your first day of employment.\n",
	}
	c := NewChunker(0, 0)
	a := c.Split(doc)
	b := c.Split(doc)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs across splits", i)
		}
	}
	if a[0].ID == "" || len(a[0].ID) != 16 {
		t.Errorf("chunk ID should be 16 hex chars, got %q", a[0].ID)
	}
}

func TestNewChunker_ClampsOverlap(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 100)
	if c.Overlap >= c.Size {
		t.Errorf("overlap %d not clamped below size %d", c.Overlap, c.Size)
	}
}

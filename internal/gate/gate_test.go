package gate

import "testing"

func TestKeywordGate_Admit(t *testing.T) {
	t.Parallel()

	g := NewKeywordGate(nil)

	tests := []struct {
		question string
		want     bool
	}{
		{"How many vacation days do I get per year?", true},
		{"What is the PTO policy?", true},
		{"Can I work from home on Fridays?", true},
		{"HOW DOES THE 401K MATCH WORK", true},
		{"Tell me about maternity leave", true},
		{"What is the capital of France?", false},
		{"Write a python script to sort a list", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := g.Admit(tt.question); got != tt.want {
			t.Errorf("Admit(%q) = %v, want %v", tt.question, got, tt.want)
		}
	}
}

func TestKeywordGate_PhraseTerms(t *testing.T) {
	t.Parallel()

	g := NewKeywordGate(nil)
	if !g.Admit("how much time off do new hires get") {
		t.Error("multi-word term 'time off' should match")
	}
}

func TestKeywordGate_CustomTerms(t *testing.T) {
	t.Parallel()

	g := NewKeywordGate([]string{"Sabbatical", " visa "})
	if !g.Admit("do we offer a sabbatical program") {
		t.Error("custom term should match case-insensitively")
	}
	if !g.Admit("what about visa sponsorship") {
		t.Error("custom term should be trimmed before matching")
	}
	if g.Admit("how many vacation days do I get") {
		t.Error("default terms must not apply when custom terms are set")
	}
}

func TestKeywordGate_Match(t *testing.T) {
	t.Parallel()

	g := NewKeywordGate(nil)
	term, ok := g.Match("what does the employee handbook say about overtime")
	if !ok {
		t.Fatal("expected a match")
	}
	if term == "" {
		t.Error("matched term should be reported")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("HRFAQ_GATE_KEYWORDS", "espresso,kombucha")

	g := NewFromEnv()
	if !g.Admit("where is the espresso machine") {
		t.Error("env-configured term should match")
	}
	if g.Admit("what is the vacation policy") {
		t.Error("defaults must not apply when env terms are set")
	}
}

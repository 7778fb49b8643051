// Package gate implements the domain admission check that runs before any
// retrieval or generation. A question is admitted when at least one curated
// term appears in it; everything else is deflected with a canned message.
// The check is a case-insensitive substring scan — O(terms), no model calls.
package gate

import (
	"os"
	"strings"
)

// Gate decides whether a question is in scope for the assistant.
type Gate interface {
	// Admit reports whether the question should be answered.
	Admit(question string) bool
}

// DeflectionMessage is the canned answer returned for out-of-domain
// questions. It is emitted as a single chunk on the streaming path.
const DeflectionMessage = "I'm sorry, but this question is outside my expertise as an HR assistant. " +
	"I can only help with HR-related topics such as:\n\n" +
	"• Leave & PTO (vacation, sick leave, holidays)\n" +
	"• Benefits (health insurance, 401k, wellness)\n" +
	"• Payroll (salary, bonuses, expenses)\n" +
	"• Remote work policies\n" +
	"• Training & onboarding\n" +
	"• Company policies\n\n" +
	"Please ask an HR-related question!"

// DefaultTerms is the built-in HR admission vocabulary. Multi-word terms
// match as phrases ("time off", "work from home").
var DefaultTerms = []string{
	"vacation", "leave", "pto", "time off", "holiday", "sick", "absence", "day off", "days off",
	"salary", "pay", "compensation", "bonus", "raise", "payroll", "paycheck",
	"benefit", "insurance", "health", "dental", "vision", "401k", "retirement",
	"remote", "work from home", "wfh", "hybrid", "telecommute",
	"training", "onboarding", "orientation", "learning", "development", "course",
	"policy", "handbook", "guideline", "procedure",
	"hr", "human resources", "employee", "employer", "staff", "workforce",
	"hire", "recruit", "interview", "offer", "probation", "termination",
	"promotion", "review", "performance", "evaluation", "feedback",
	"harassment", "discrimination", "complaint", "grievance", "ethics",
	"expense", "reimbursement", "per diem",
	"maternity", "paternity", "parental", "fmla", "disability",
	"dress code", "attire", "uniform",
	"overtime", "hours", "schedule", "shift", "flexible",
	"referral", "transfer", "relocation",
}

// KeywordGate admits questions that contain at least one of its terms.
// It is immutable after construction and safe for concurrent use.
type KeywordGate struct {
	terms []string
}

// NewKeywordGate builds a gate from terms; empty input falls back to
// DefaultTerms. Terms are lowercased once here so Admit only lowercases the
// question.
func NewKeywordGate(terms []string) *KeywordGate {
	if len(terms) == 0 {
		terms = DefaultTerms
	}
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	return &KeywordGate{terms: lowered}
}

// NewFromEnv builds a gate from the HRFAQ_GATE_KEYWORDS env var
// (comma-separated), falling back to DefaultTerms.
func NewFromEnv() *KeywordGate {
	raw := os.Getenv("HRFAQ_GATE_KEYWORDS")
	if raw == "" {
		return NewKeywordGate(nil)
	}
	return NewKeywordGate(strings.Split(raw, ","))
}

// Admit implements Gate.
func (g *KeywordGate) Admit(question string) bool {
	_, ok := g.Match(question)
	return ok
}

// Match returns the first term found in question, for logging and debugging.
func (g *KeywordGate) Match(question string) (string, bool) {
	lower := strings.ToLower(question)
	for _, term := range g.terms {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

// Terms returns the gate's admission vocabulary.
func (g *KeywordGate) Terms() []string {
	return append([]string(nil), g.terms...)
}

var _ Gate = (*KeywordGate)(nil)

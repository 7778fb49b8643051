// Package benchmark implements the offline A/B evaluation harness: it runs
// prompt-strategy variants over a fixed question set through the synchronous
// answer path and reports quality metrics with statistical comparisons.
package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
)

// Question is one evaluation item: a question and its reference answer.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

// questionAliases accepts the instruction/output field names used by
// instruction-tuning datasets alongside the native question/answer names.
type questionAliases struct {
	Question    string `json:"question"`
	Instruction string `json:"instruction"`
	Answer      string `json:"answer"`
	Output      string `json:"output"`
	Category    string `json:"category"`
}

// UnmarshalJSON maps alias field names onto the canonical ones.
func (q *Question) UnmarshalJSON(data []byte) error {
	var a questionAliases
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	q.Question = a.Question
	if q.Question == "" {
		q.Question = a.Instruction
	}
	q.Answer = a.Answer
	if q.Answer == "" {
		q.Answer = a.Output
	}
	q.Category = a.Category
	return nil
}

// Set is a complete evaluation question set.
type Set struct {
	// InDomain questions must be admitted and answered.
	InDomain []Question `json:"in_domain"`
	// OutOfDomain questions must be deflected by the gate.
	OutOfDomain []Question `json:"out_of_domain"`
}

// LoadQuestions reads a JSON array of questions from path.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("benchmark: read %s: %w", path, err)
	}
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("benchmark: parse %s: %w", path, err)
	}
	for i, q := range qs {
		if q.Question == "" {
			return nil, fmt.Errorf("benchmark: %s: entry %d has no question", path, i)
		}
	}
	return qs, nil
}

// LoadSet builds a Set from separate in-domain and out-of-domain files.
// An empty oodPath yields a set without an OOD section.
func LoadSet(inPath, oodPath string) (*Set, error) {
	in, err := LoadQuestions(inPath)
	if err != nil {
		return nil, err
	}
	set := &Set{InDomain: in}
	if oodPath != "" {
		ood, err := LoadQuestions(oodPath)
		if err != nil {
			return nil, err
		}
		set.OutOfDomain = ood
	}
	return set, nil
}

// DefaultSet returns the built-in evaluation set used when no question files
// are configured. Reference answers describe the stock corpus policies.
func DefaultSet() *Set {
	return &Set{
		InDomain: []Question{
			{Question: "How many vacation days do employees get per year?",
				Answer: "Employees accrue 20 days of paid vacation per year.", Category: "benefits"},
			{Question: "What is the sick leave policy?",
				Answer: "Employees receive 10 paid sick days per year, with a doctor's note required after 3 consecutive days.", Category: "benefits"},
			{Question: "How do I enroll in health insurance?",
				Answer: "Enroll through the benefits portal within 30 days of your start date or during open enrollment.", Category: "benefits"},
			{Question: "What is the remote work policy?",
				Answer: "Employees may work remotely up to 3 days per week with manager approval.", Category: "policy"},
			{Question: "How does the 401k employer match work?",
				Answer: "The company matches 100% of contributions up to 4% of salary, vesting over 3 years.", Category: "benefits"},
			{Question: "What holidays does the company observe?",
				Answer: "The company observes 11 paid holidays per year.", Category: "policy"},
			{Question: "How do I submit an expense report?",
				Answer: "Submit expenses through the expense system within 30 days with itemized receipts.", Category: "expenses"},
			{Question: "What is the parental leave policy?",
				Answer: "Primary caregivers receive 16 weeks of paid parental leave; secondary caregivers receive 6 weeks.", Category: "benefits"},
		},
		OutOfDomain: []Question{
			{Question: "What is the capital of France?"},
			{Question: "How do I fix a segmentation fault in C?"},
			{Question: "What's a good recipe for lasagna?"},
			{Question: "Who won the World Cup in 2022?"},
		},
	}
}

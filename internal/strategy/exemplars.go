package strategy

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultFewShot is the number of exemplars injected by the optimized
// strategy when not configured otherwise.
const DefaultFewShot = 4

// Exemplar is one question/answer demonstration pair for few-shot prompting.
type Exemplar struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DefaultExemplars is the built-in demonstration pool the optimized strategy
// samples from when no exemplar file is configured.
var DefaultExemplars = []Exemplar{
	{
		Question: "What is the company's sick leave policy?",
		Answer:   "Employees can take up to 5 sick days per year with manager approval. Extended sick leave requires medical documentation.",
	},
	{
		Question: "How do I request a salary review?",
		Answer:   "Submit a salary review request through the HR portal with supporting documentation. Reviews are conducted annually or upon promotion.",
	},
	{
		Question: "What training opportunities are available?",
		Answer:   "The company offers various training programs including technical skills, leadership development, and professional certifications. Check the learning portal for available courses.",
	},
	{
		Question: "How many vacation days do new employees get?",
		Answer:   "New employees accrue 20 days of paid vacation per calendar year, available after the probation period. Unused days carry over up to a 5-day limit.",
	},
	{
		Question: "Can I work from home?",
		Answer:   "Hybrid work is available to all full-time employees with manager approval. Fully remote arrangements require director sign-off and are reviewed quarterly.",
	},
	{
		Question: "When does health insurance coverage start?",
		Answer:   "Medical, dental and vision coverage begins on your first day of employment. Enrollment forms are due within 30 days of your start date.",
	},
	{
		Question: "How do I submit an expense report?",
		Answer:   "File expenses through the finance portal within 30 days of purchase, attaching itemized receipts. Reimbursement is paid with the next payroll cycle.",
	},
	{
		Question: "What is the parental leave policy?",
		Answer:   "The company provides 16 weeks of paid parental leave for primary caregivers and 6 weeks for secondary caregivers, usable within 12 months of birth or adoption.",
	},
}

// LoadExemplars reads an exemplar pool from a JSON file: an array of
// {question, answer} objects.
func LoadExemplars(path string) ([]Exemplar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("strategy: reading exemplars %s: %w", path, err)
	}
	var out []Exemplar
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("strategy: parsing exemplars %s: %w", path, err)
	}
	return out, nil
}

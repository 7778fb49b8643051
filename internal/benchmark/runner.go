package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Farx1/hrfaq-go/internal/gate"
	"github.com/Farx1/hrfaq-go/internal/logging"
	"github.com/Farx1/hrfaq-go/internal/pipeline"
	"github.com/Farx1/hrfaq-go/internal/rag"
)

// ErrRecordMismatch aborts a report when variants saw different question
// orderings; cross-variant statistics would silently compare unrelated
// questions otherwise.
var ErrRecordMismatch = errors.New("benchmark: variants saw different question orderings")

// DefaultAlpha is the significance level for variant comparisons.
const DefaultAlpha = 0.05

// Variant pairs a label with the pipeline under evaluation.
type Variant struct {
	Name     string
	Pipeline *pipeline.Pipeline
}

// Record is the result of one (variant, question) evaluation.
type Record struct {
	Variant    string  `json:"variant"`
	Question   string  `json:"question"`
	Reference  string  `json:"reference,omitempty"`
	Answer     string  `json:"answer"`
	Category   string  `json:"category,omitempty"`
	OOD        bool    `json:"ood,omitempty"`
	Rejected   bool    `json:"rejected,omitempty"`
	ExactMatch float64 `json:"exact_match"`
	RougeL     float64 `json:"rouge_l"`
	BLEU       float64 `json:"bleu"`
	Overlap    float64 `json:"overlap"`
	LatencyMS  int64   `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
}

// VariantSummary aggregates one variant's records.
type VariantSummary struct {
	Name        string  `json:"name"`
	N           int     `json:"n"`
	RougeL      Summary `json:"rouge_l"`
	BLEU        Summary `json:"bleu"`
	Overlap     Summary `json:"overlap"`
	ExactMatch  float64 `json:"exact_match_rate"`
	OODAccuracy float64 `json:"ood_accuracy"`
	LatencyMS   Summary `json:"latency_ms"`
	Errors      int     `json:"errors"`
}

// Comparison is the paired statistical comparison of the first two variants.
type Comparison struct {
	Baseline  string       `json:"baseline"`
	Candidate string       `json:"candidate"`
	RougeL    *TTestResult `json:"rouge_l"`
	BLEU      *TTestResult `json:"bleu"`
}

// RunReport is the complete output of one benchmark run.
type RunReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Alpha       float64          `json:"alpha"`
	Seed        int64            `json:"seed"`
	Variants    []VariantSummary `json:"variants"`
	Comparison  *Comparison      `json:"comparison,omitempty"`
	Records     []Record         `json:"-"`
}

// Runner evaluates pipeline variants over a question set. Retrieval and
// gating are shared across variants so every variant answers from identical
// context.
type Runner struct {
	gate      gate.Gate
	retriever *rag.Retriever
	alpha     float64
	seed      int64
	log       *slog.Logger
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Gate      gate.Gate
	Retriever *rag.Retriever
	Alpha     float64
	Seed      int64
	Logger    *slog.Logger
}

// NewRunner constructs a Runner. A zero alpha gets DefaultAlpha.
func NewRunner(cfg RunnerConfig) *Runner {
	alpha := cfg.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{
		gate:      cfg.Gate,
		retriever: cfg.Retriever,
		alpha:     alpha,
		seed:      cfg.Seed,
		log:       log,
	}
}

// Run evaluates every variant over the set sequentially in fixed order and
// returns the aggregated report. Fails with ErrRecordMismatch when variant
// record sequences diverge. Per-question generation failures are recorded in
// place, scored zero, and do not abort the run.
func (r *Runner) Run(ctx context.Context, set *Set, variants []Variant) (*RunReport, error) {
	if set == nil || len(set.InDomain) == 0 {
		return nil, fmt.Errorf("benchmark: question set must contain in-domain questions")
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("benchmark: at least one variant is required")
	}

	report := &RunReport{
		GeneratedAt: time.Now().UTC(),
		Alpha:       r.alpha,
		Seed:        r.seed,
	}

	perVariant := make([][]Record, len(variants))
	for vi, v := range variants {
		r.log.Info("benchmark variant start",
			slog.String("variant", v.Name),
			slog.Int("questions", len(set.InDomain)+len(set.OutOfDomain)))

		records := make([]Record, 0, len(set.InDomain)+len(set.OutOfDomain))
		for _, q := range set.InDomain {
			records = append(records, r.evalInDomain(ctx, v, q))
		}
		for _, q := range set.OutOfDomain {
			records = append(records, r.evalOutOfDomain(v, q))
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("benchmark: run cancelled: %w", err)
		}
		perVariant[vi] = records
		report.Records = append(report.Records, records...)
	}

	if err := checkAlignment(perVariant); err != nil {
		return nil, err
	}

	for vi, v := range variants {
		report.Variants = append(report.Variants, summarizeVariant(v.Name, perVariant[vi]))
	}

	if len(variants) >= 2 {
		cmp, err := compare(variants[0].Name, variants[1].Name, perVariant[0], perVariant[1], r.alpha)
		if err != nil {
			return nil, err
		}
		report.Comparison = cmp
	}
	return report, nil
}

// evalInDomain answers one in-domain question through the synchronous path
// and scores it against the reference.
func (r *Runner) evalInDomain(ctx context.Context, v Variant, q Question) Record {
	rec := Record{Variant: v.Name, Question: q.Question, Reference: q.Answer, Category: q.Category}

	if !r.gate.Admit(q.Question) {
		// Gate miss on an in-domain question: scored zero as a wrong answer.
		rec.Answer = gate.DeflectionMessage
		rec.Rejected = true
		return rec
	}

	start := time.Now()
	results, err := r.retriever.Retrieve(ctx, rag.NewQuery(q.Question), r.retriever.TopK(), q.Category)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	answer, err := v.Pipeline.Generate(ctx, q.Question, results, nil)
	rec.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		return rec
	}

	rec.Answer = answer
	// The model can deflect on its own when retrieval came back empty; record
	// those as rejections so in-domain deflection rates stay visible.
	rec.Rejected = IsRejection(answer)
	rec.ExactMatch = ExactMatch(answer, q.Answer)
	rec.RougeL = RougeL(answer, q.Answer)
	rec.BLEU = BLEU(answer, q.Answer)
	rec.Overlap = WordOverlap(answer, q.Answer)
	return rec
}

// evalOutOfDomain scores an OOD question purely on rejection correctness.
func (r *Runner) evalOutOfDomain(v Variant, q Question) Record {
	rec := Record{Variant: v.Name, Question: q.Question, OOD: true}
	if !r.gate.Admit(q.Question) {
		rec.Answer = gate.DeflectionMessage
		rec.Rejected = true
	}
	return rec
}

// checkAlignment verifies every variant saw the same question sequence.
func checkAlignment(perVariant [][]Record) error {
	base := perVariant[0]
	for _, records := range perVariant[1:] {
		if len(records) != len(base) {
			return ErrRecordMismatch
		}
		for i := range records {
			if records[i].Question != base[i].Question || records[i].OOD != base[i].OOD {
				return ErrRecordMismatch
			}
		}
	}
	return nil
}

// summarizeVariant aggregates one variant's records into a VariantSummary.
func summarizeVariant(name string, records []Record) VariantSummary {
	var rouge, bleu, overlap, latency []float64
	exact, errs := 0, 0
	oodTotal, oodCorrect := 0, 0

	for _, rec := range records {
		if rec.OOD {
			oodTotal++
			if rec.Rejected {
				oodCorrect++
			}
			continue
		}
		if rec.Error != "" {
			errs++
		}
		rouge = append(rouge, rec.RougeL)
		bleu = append(bleu, rec.BLEU)
		overlap = append(overlap, rec.Overlap)
		latency = append(latency, float64(rec.LatencyMS))
		if rec.ExactMatch == 1 {
			exact++
		}
	}

	s := VariantSummary{
		Name:      name,
		N:         len(rouge),
		RougeL:    Summarize(rouge),
		BLEU:      Summarize(bleu),
		Overlap:   Summarize(overlap),
		LatencyMS: Summarize(latency),
		Errors:    errs,
	}
	if len(rouge) > 0 {
		s.ExactMatch = float64(exact) / float64(len(rouge))
	}
	if oodTotal > 0 {
		s.OODAccuracy = float64(oodCorrect) / float64(oodTotal)
	}
	return s
}

// compare runs the paired tests between the first two variants' in-domain
// records.
func compare(baseName, candName string, base, cand []Record, alpha float64) (*Comparison, error) {
	var baseRouge, candRouge, baseBLEU, candBLEU []float64
	for i := range base {
		if base[i].OOD {
			continue
		}
		baseRouge = append(baseRouge, base[i].RougeL)
		candRouge = append(candRouge, cand[i].RougeL)
		baseBLEU = append(baseBLEU, base[i].BLEU)
		candBLEU = append(candBLEU, cand[i].BLEU)
	}

	rougeTest, err := PairedTTest(candRouge, baseRouge, alpha)
	if err != nil {
		return nil, err
	}
	bleuTest, err := PairedTTest(candBLEU, baseBLEU, alpha)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		Baseline:  baseName,
		Candidate: candName,
		RougeL:    rougeTest,
		BLEU:      bleuTest,
	}, nil
}

package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact file names written by WriteArtifacts.
const (
	summaryFile = "summary.json"
	recordsFile = "records.ndjson"
	reportFile  = "report.md"
)

// WriteArtifacts writes the three run artifacts under dir: summary.json
// (aggregates and comparison), records.ndjson (one Record per line, appended
// across runs), and report.md (human-readable summary, overwritten).
func WriteArtifacts(dir string, report *RunReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("benchmark: create reports dir: %w", err)
	}

	summary, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("benchmark: encode summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, summaryFile), append(summary, '\n'), 0o644); err != nil {
		return fmt.Errorf("benchmark: write summary: %w", err)
	}

	if err := appendRecords(filepath.Join(dir, recordsFile), report.Records); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, reportFile), []byte(Markdown(report)), 0o644); err != nil {
		return fmt.Errorf("benchmark: write report: %w", err)
	}
	return nil
}

// appendRecords appends one JSON line per record to path.
func appendRecords(path string, records []Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("benchmark: open records: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("benchmark: write record: %w", err)
		}
	}
	return nil
}

// Markdown renders the report as a readable summary table.
func Markdown(report *RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Benchmark Report\n\n")
	fmt.Fprintf(&b, "Generated: %s  \n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Seed: %d · α = %g\n\n", report.Seed, report.Alpha)

	b.WriteString("## Variants\n\n")
	b.WriteString("| Variant | N | ROUGE-L | BLEU | Exact | Overlap | OOD acc | Latency p50 (ms) | Errors |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, v := range report.Variants {
		fmt.Fprintf(&b, "| %s | %d | %.3f ± %.3f | %.3f | %.2f | %.3f | %.2f | %.0f | %d |\n",
			v.Name, v.N, v.RougeL.Mean, v.RougeL.Std, v.BLEU.Mean,
			v.ExactMatch, v.Overlap.Mean, v.OODAccuracy, v.LatencyMS.Median, v.Errors)
	}

	if c := report.Comparison; c != nil {
		fmt.Fprintf(&b, "\n## Comparison: %s vs %s\n\n", c.Candidate, c.Baseline)
		b.WriteString("| Metric | Δ mean | t | p | Cohen's d | Significant |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		writeTestRow(&b, "ROUGE-L", c.RougeL)
		writeTestRow(&b, "BLEU", c.BLEU)
	}
	return b.String()
}

func writeTestRow(b *strings.Builder, metric string, t *TTestResult) {
	if t == nil {
		return
	}
	verdict := "no"
	if t.Significant {
		verdict = "yes"
	}
	fmt.Fprintf(b, "| %s | %+.4f | %.3f | %.4f | %.3f | %s |\n",
		metric, t.MeanDiff, t.T, t.P, t.EffectSize, verdict)
}

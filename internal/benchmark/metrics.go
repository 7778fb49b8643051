package benchmark

import (
	"math"
	"strings"
	"unicode"
)

// maxBLEUOrder is the highest n-gram order used by the BLEU score.
const maxBLEUOrder = 4

// Normalize lowercases text, strips punctuation, and collapses whitespace so
// surface differences don't dominate the quality metrics.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// tokens splits normalized text into words.
func tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// ExactMatch returns 1 when the normalized candidate equals the normalized
// reference, else 0.
func ExactMatch(candidate, reference string) float64 {
	if Normalize(candidate) == Normalize(reference) {
		return 1
	}
	return 0
}

// RougeL computes the ROUGE-L F1 score (LCS-based, β=1) between a candidate
// and a reference.
func RougeL(candidate, reference string) float64 {
	c, r := tokens(candidate), tokens(reference)
	if len(c) == 0 || len(r) == 0 {
		return 0
	}
	lcs := lcsLen(c, r)
	if lcs == 0 {
		return 0
	}
	precision := float64(lcs) / float64(len(c))
	recall := float64(lcs) / float64(len(r))
	return 2 * precision * recall / (precision + recall)
}

// lcsLen is the longest-common-subsequence length over token slices, using
// a two-row table to bound memory on long answers.
func lcsLen(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// BLEU computes a cumulative 4-gram BLEU score with add-one smoothing and
// brevity penalty. Single-reference, geometric mean of n-gram precisions.
func BLEU(candidate, reference string) float64 {
	c, r := tokens(candidate), tokens(reference)
	if len(c) == 0 || len(r) == 0 {
		return 0
	}

	logSum := 0.0
	for n := 1; n <= maxBLEUOrder; n++ {
		matched, total := ngramOverlap(c, r, n)
		// Add-one smoothing keeps higher orders from zeroing the product.
		p := (float64(matched) + 1) / (float64(total) + 1)
		logSum += math.Log(p)
	}
	score := math.Exp(logSum / maxBLEUOrder)

	if len(c) < len(r) {
		score *= math.Exp(1 - float64(len(r))/float64(len(c)))
	}
	return score
}

// ngramOverlap counts candidate n-grams (clipped) that appear in the reference.
func ngramOverlap(c, r []string, n int) (matched, total int) {
	if len(c) < n {
		return 0, 0
	}
	refCounts := map[string]int{}
	for i := 0; i+n <= len(r); i++ {
		refCounts[strings.Join(r[i:i+n], " ")]++
	}
	for i := 0; i+n <= len(c); i++ {
		total++
		g := strings.Join(c[i:i+n], " ")
		if refCounts[g] > 0 {
			refCounts[g]--
			matched++
		}
	}
	return matched, total
}

// WordOverlap is the fraction of reference words present in the candidate.
func WordOverlap(candidate, reference string) float64 {
	r := tokens(reference)
	if len(r) == 0 {
		return 0
	}
	cSet := map[string]bool{}
	for _, w := range tokens(candidate) {
		cSet[w] = true
	}
	hit := 0
	for _, w := range r {
		if cSet[w] {
			hit++
		}
	}
	return float64(hit) / float64(len(r))
}

// rejectionPhrases are the fragments that identify a deflection answer.
var rejectionPhrases = []string{
	"outside my expertise",
	"i can only help with hr",
	"contact hr directly",
	"not able to help with that",
}

// IsRejection reports whether an answer is a domain deflection rather than a
// substantive response.
func IsRejection(answer string) bool {
	a := strings.ToLower(answer)
	for _, p := range rejectionPhrases {
		if strings.Contains(a, p) {
			return true
		}
	}
	return false
}

package benchmark

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary holds the aggregate statistics of one metric over a question set.
type Summary struct {
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Median  float64 `json:"median"`
	Q25     float64 `json:"q25"`
	Q75     float64 `json:"q75"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
	N       int     `json:"n"`
}

// Summarize computes a Summary over xs. The confidence interval is the 95%
// interval for the mean using the Student's t distribution; with fewer than
// two samples the interval collapses to the mean.
func Summarize(xs []float64) Summary {
	n := len(xs)
	if n == 0 {
		return Summary{}
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s := Summary{
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Q75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
		N:      n,
	}
	s.CILower, s.CIUpper = s.Mean, s.Mean
	if n > 1 {
		s.Std = stat.StdDev(sorted, nil)
		tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
		margin := tDist.Quantile(0.975) * s.Std / math.Sqrt(float64(n))
		s.CILower = s.Mean - margin
		s.CIUpper = s.Mean + margin
	}
	return s
}

// TTestResult is the outcome of a paired two-sided t-test between two
// variants on matched questions.
type TTestResult struct {
	// T is the t statistic of the mean paired difference.
	T float64 `json:"t"`
	// P is the two-sided p-value.
	P float64 `json:"p"`
	// MeanDiff is the mean of (a − b) over matched pairs.
	MeanDiff float64 `json:"mean_diff"`
	// EffectSize is Cohen's d on the paired differences.
	EffectSize float64 `json:"effect_size"`
	// Significant is true when P < the configured alpha.
	Significant bool `json:"significant"`
	// Alpha is the significance level the test was evaluated at.
	Alpha float64 `json:"alpha"`
	// N is the number of matched pairs.
	N int `json:"n"`
}

// PairedTTest runs a two-sided paired t-test of a against b at the given
// significance level. The inputs must be matched by position and equal in
// length. Identical inputs yield P=1; zero-variance nonzero differences are
// reported as significant with P=0.
func PairedTTest(a, b []float64, alpha float64) (*TTestResult, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("benchmark: paired t-test requires matched samples, got %d and %d", len(a), len(b))
	}
	if len(a) < 2 {
		return nil, fmt.Errorf("benchmark: paired t-test requires at least 2 pairs, got %d", len(a))
	}

	diffs := make([]float64, len(a))
	for i := range a {
		diffs[i] = a[i] - b[i]
	}

	n := float64(len(diffs))
	mean := stat.Mean(diffs, nil)
	sd := stat.StdDev(diffs, nil)

	res := &TTestResult{MeanDiff: mean, Alpha: alpha, N: len(diffs)}
	if sd == 0 {
		if mean == 0 {
			res.P = 1
			return res, nil
		}
		// Constant nonzero difference: infinitely strong evidence.
		res.T = math.Inf(sign(mean))
		res.P = 0
		res.EffectSize = math.Inf(sign(mean))
		res.Significant = true
		return res, nil
	}

	res.T = mean / (sd / math.Sqrt(n))
	res.EffectSize = mean / sd
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	res.P = 2 * tDist.Survival(math.Abs(res.T))
	res.Significant = res.P < alpha
	return res, nil
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}

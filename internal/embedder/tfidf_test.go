package embedder

import (
	"context"
	"math"
	"testing"
)

var fitTexts = []string{
	"employees accrue twenty days of paid annual leave each year",
	"salaries are paid bi-weekly on fridays via direct deposit",
	"medical dental and vision insurance starts on day one",
}

func TestTFIDF_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewTFIDF()
	a.Fit(fitTexts)
	b := NewTFIDF()
	b.Fit(fitTexts)

	if a.Dimensions() != b.Dimensions() {
		t.Fatalf("dimensions differ: %d vs %d", a.Dimensions(), b.Dimensions())
	}

	va, err := a.Embed(context.Background(), []string{"how is annual leave paid"})
	if err != nil {
		t.Fatal(err)
	}
	vb, err := b.Embed(context.Background(), []string{"how is annual leave paid"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range va[0] {
		if va[0][i] != vb[0][i] {
			t.Fatalf("vectors differ at dim %d", i)
		}
	}
}

func TestTFIDF_UnitNorm(t *testing.T) {
	t.Parallel()

	e := NewTFIDF()
	e.Fit(fitTexts)

	vecs, err := e.Embed(context.Background(), []string{"annual leave insurance"})
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("vector norm² = %f, want 1", sum)
	}
}

func TestTFIDF_UnknownTermsIgnored(t *testing.T) {
	t.Parallel()

	e := NewTFIDF()
	e.Fit(fitTexts)

	vecs, err := e.Embed(context.Background(), []string{"quantum entanglement tensor"})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vecs[0] {
		if v != 0 {
			t.Errorf("dim %d non-zero for out-of-vocabulary query", i)
		}
	}
}

func TestTFIDF_UnfittedYieldsEmptyVectors(t *testing.T) {
	t.Parallel()

	e := NewTFIDF()
	vecs, err := e.Embed(context.Background(), []string{"anything"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 0 {
		t.Errorf("unfitted embed should yield zero-dimensional vectors, got %v", vecs)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := tokenize("The 401k plan, and YOUR vacation-days!")
	want := []string{"401k", "plan", "vacation", "days"}
	if len(got) != len(want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

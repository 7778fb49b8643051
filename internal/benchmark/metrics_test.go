package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Farx1/hrfaq-go/internal/gate"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "employees get 20 days", Normalize("  Employees get 20 days!  "))
	assert.Equal(t, "its a test", Normalize("It's a TEST."))
	assert.Equal(t, "", Normalize("?!—"))
}

func TestExactMatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, ExactMatch("20 days per year.", "20 Days per year"))
	assert.Equal(t, 0.0, ExactMatch("20 days", "25 days"))
}

func TestRougeL(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, RougeL("employees accrue 20 days", "employees accrue 20 days"), 1e-9)
	assert.Equal(t, 0.0, RougeL("alpha beta", "gamma delta"))
	assert.Equal(t, 0.0, RougeL("", "reference"))

	// Partial overlap lands strictly between the extremes.
	partial := RougeL("employees accrue 20 vacation days annually", "employees accrue 20 days")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)

	// Order matters: a scrambled candidate scores below the ordered one.
	ordered := RougeL("a b c d", "a b c d")
	scrambled := RougeL("d c b a", "a b c d")
	assert.Greater(t, ordered, scrambled)
}

func TestBLEU(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, BLEU("the policy grants twenty days", "the policy grants twenty days"), 1e-9)
	assert.Equal(t, 0.0, BLEU("", "reference"))

	full := BLEU("the policy grants twenty days", "the policy grants twenty days")
	partial := BLEU("the policy grants ten days", "the policy grants twenty days")
	disjoint := BLEU("completely unrelated words here now", "the policy grants twenty days")
	assert.Greater(t, full, partial)
	assert.Greater(t, partial, disjoint)

	// Brevity penalty: a very short candidate scores below a full-length one
	// with the same matched prefix quality.
	short := BLEU("the policy", "the policy grants twenty days to all employees")
	assert.Less(t, short, full)
}

func TestWordOverlap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, WordOverlap("employees accrue 20 days of vacation", "employees accrue 20 days"))
	assert.Equal(t, 0.5, WordOverlap("employees accrue", "employees accrue 20 days"))
	assert.Equal(t, 0.0, WordOverlap("nothing shared", "employees accrue"))
	assert.Equal(t, 0.0, WordOverlap("anything", ""))
}

func TestIsRejection(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRejection(gate.DeflectionMessage))
	assert.False(t, IsRejection("You get 20 days of vacation per year."))
}

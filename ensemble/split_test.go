package ensemble

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/grove/frame"
)

// Categorical split gains must score the partition that partitionRows
// actually makes, with missing values on the left.

func TestGiniCategoricalScoresMissingOnLeft(t *testing.T) {
	// Level 0 is pure class 0, level 1 pure class 1, and the two
	// missing rows are class 1. With the missing rows on the left next
	// to level 1 the split {1} vs {0} is perfect.
	nan := math.NaN()
	x := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1, nan, nan})
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 1}
	rows := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	meta := []frame.FeatureMeta{{Name: "f", Enum: true, NLevels: 3}}

	s := findBestGiniSplit(x, rows, []int{0}, meta, labels, 2, 20, 1, 0)
	if s.kind != CategoricalNode || s.feature != 0 {
		t.Fatalf("unexpected split: %+v", s)
	}
	if len(s.categories) != 1 || s.categories[0] != 1 {
		t.Fatalf("left categories = %v, want [1]", s.categories)
	}

	// Parent impurity: 10 * gini([4,6]) = 4.8. Both children are pure,
	// so the whole parent impurity is the gain.
	if math.Abs(s.gain-4.8) > 1e-9 {
		t.Errorf("gain = %v, want 4.8", s.gain)
	}

	left, right := partitionRows(x, rows, s)
	if len(left) != 6 || len(right) != 4 {
		t.Errorf("partition sizes %d/%d, want 6/4", len(left), len(right))
	}
	for _, r := range left {
		if labels[r] != 1 {
			t.Errorf("row %d on the left is class %d, split is not pure", r, labels[r])
		}
	}
}

func TestGradCategoricalScoresMissingOnLeft(t *testing.T) {
	nan := math.NaN()
	x := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1, nan, nan})
	grads := []float64{1, 1, 1, 1, -1, -1, -1, -1, -1, -1}
	hess := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	rows := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	meta := []frame.FeatureMeta{{Name: "f", Enum: true, NLevels: 3}}

	s := findBestGradSplit(x, rows, []int{0}, meta, grads, hess, 20, 1, 0)
	if s.kind != CategoricalNode {
		t.Fatalf("unexpected split: %+v", s)
	}
	if len(s.categories) != 1 || s.categories[0] != 1 {
		t.Fatalf("left categories = %v, want [1]", s.categories)
	}

	// Left holds level 1 plus the missing rows: G=-6, H=6. Right holds
	// level 0: G=4, H=4. Gain = 0.5*(36/6 + 16/4 - 4/10).
	want := 0.5 * (6.0 + 4.0 - 0.4)
	if math.Abs(s.gain-want) > 1e-6 {
		t.Errorf("gain = %v, want %v", s.gain, want)
	}
}

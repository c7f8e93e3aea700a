package frame

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// syntheticFrame builds an n-row frame with one numeric feature and a
// binary target with a fixed 60/40 class balance.
func syntheticFrame(t *testing.T, n int) *Frame {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("x,label\n")
	for i := 0; i < n; i++ {
		label := "pos"
		if i%5 >= 3 {
			label = "neg"
		}
		fmt.Fprintf(&sb, "%d,%s\n", i, label)
	}
	f, err := ReadCSV(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("building synthetic frame: %v", err)
	}
	return f
}

func TestSplitPartitionsAllRows(t *testing.T) {
	f := syntheticFrame(t, 2000)

	parts, err := f.Split([]float64{0.6, 0.2}, 1234)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("got %d partitions, want 3", len(parts))
	}

	total := 0
	for _, p := range parts {
		total += p.NumRows()
	}
	if total != f.NumRows() {
		t.Errorf("partitions hold %d rows, want %d", total, f.NumRows())
	}

	// The assignment is probabilistic; sizes should be near the
	// requested fractions but need not be exact.
	frac0 := float64(parts[0].NumRows()) / float64(f.NumRows())
	if math.Abs(frac0-0.6) > 0.05 {
		t.Errorf("first partition fraction = %.3f, want ~0.6", frac0)
	}
	frac2 := float64(parts[2].NumRows()) / float64(f.NumRows())
	if math.Abs(frac2-0.2) > 0.05 {
		t.Errorf("remainder fraction = %.3f, want ~0.2", frac2)
	}
}

func TestSplitDeterministicForSeed(t *testing.T) {
	f := syntheticFrame(t, 500)

	a, err := f.Split([]float64{0.7}, 42)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	b, err := f.Split([]float64{0.7}, 42)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if a[0].NumRows() != b[0].NumRows() {
		t.Fatalf("same seed produced different partition sizes: %d vs %d",
			a[0].NumRows(), b[0].NumRows())
	}
	ax, _ := a[0].Col("x")
	bx, _ := b[0].Col("x")
	for i := range ax.Data {
		if ax.Data[i] != bx.Data[i] {
			t.Fatalf("same seed produced different row %d", i)
		}
	}

	c, err := f.Split([]float64{0.7}, 43)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	cx, _ := c[0].Col("x")
	same := len(cx.Data) == len(ax.Data)
	if same {
		for i := range ax.Data {
			if ax.Data[i] != cx.Data[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different seeds produced identical splits")
	}
}

func TestSplitValidation(t *testing.T) {
	f := syntheticFrame(t, 100)

	cases := [][]float64{
		nil,
		{0.0},
		{1.0},
		{-0.2},
		{0.7, 0.4}, // sums past 1
	}
	for _, fractions := range cases {
		if _, err := f.Split(fractions, 1); err == nil {
			t.Errorf("fractions %v should be rejected", fractions)
		}
	}
}

func TestStratifiedSplitKeepsClassBalance(t *testing.T) {
	f := syntheticFrame(t, 1000)

	parts, err := f.StratifiedSplit("label", []float64{0.5, 0.25}, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit failed: %v", err)
	}

	overall := classFraction(t, f, "pos")
	for k, p := range parts {
		got := classFraction(t, p, "pos")
		if math.Abs(got-overall) > 0.03 {
			t.Errorf("partition %d pos fraction = %.3f, want ~%.3f", k, got, overall)
		}
	}
}

func TestStratifiedSplitRequiresEnumTarget(t *testing.T) {
	f := syntheticFrame(t, 100)
	if _, err := f.StratifiedSplit("x", []float64{0.5}, 1); err == nil {
		t.Error("numeric target should be rejected")
	}
}

func classFraction(t *testing.T, f *Frame, level string) float64 {
	t.Helper()
	col, err := f.Col("label")
	if err != nil {
		t.Fatalf("Col failed: %v", err)
	}
	idx, ok := col.LevelIndex(level)
	if !ok {
		t.Fatalf("level %q missing", level)
	}
	count := 0
	for i := 0; i < col.Len(); i++ {
		if !col.IsNA(i) && int(col.Data[i]) == idx {
			count++
		}
	}
	return float64(count) / float64(col.Len())
}

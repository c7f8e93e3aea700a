package metrics

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/grove/frame"
)

// predictionFixture builds a 4-row prediction frame and the matching
// labeled frame. Rows 0-2 are predicted correctly, row 3 is not.
func predictionFixture(t *testing.T) (preds, actual *frame.Frame) {
	t.Helper()

	preds, err := frame.New(
		frame.NewEnumColumn("predict", []string{"cat", "dog", "cat", "cat"}),
		frame.NewNumericColumn("cat", []float64{0.9, 0.3, 0.8, 0.6}),
		frame.NewNumericColumn("dog", []float64{0.1, 0.7, 0.2, 0.4}),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	actual, err = frame.New(
		frame.NewEnumColumn("label", []string{"cat", "dog", "cat", "dog"}),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	return preds, actual
}

func TestFrameAccuracy(t *testing.T) {
	preds, actual := predictionFixture(t)

	acc, err := FrameAccuracy(preds, actual, "label")
	if err != nil {
		t.Fatalf("FrameAccuracy failed: %v", err)
	}
	if math.Abs(acc-0.75) > 1e-12 {
		t.Errorf("accuracy = %v, want 0.75", acc)
	}
}

func TestFrameAccuracySkipsMissingTargets(t *testing.T) {
	preds, _ := predictionFixture(t)
	actual, err := frame.New(
		frame.NewEnumColumn("label", []string{"cat", "", "cat", ""}),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}

	acc, err := FrameAccuracy(preds, actual, "label")
	if err != nil {
		t.Fatalf("FrameAccuracy failed: %v", err)
	}
	if acc != 1.0 {
		t.Errorf("accuracy = %v, want 1.0 over the two labeled rows", acc)
	}
}

func TestFrameConfusionMatrix(t *testing.T) {
	preds, actual := predictionFixture(t)

	cm, levels, err := FrameConfusionMatrix(preds, actual, "label")
	if err != nil {
		t.Fatalf("FrameConfusionMatrix failed: %v", err)
	}
	if len(levels) != 2 || levels[0] != "cat" || levels[1] != "dog" {
		t.Fatalf("levels = %v", levels)
	}
	// cat: both predicted cat; dog: one dog, one cat.
	want := [][]int{{2, 0}, {1, 1}}
	for i := range want {
		for j := range want[i] {
			if cm[i][j] != want[i][j] {
				t.Errorf("cm[%d][%d] = %d, want %d", i, j, cm[i][j], want[i][j])
			}
		}
	}
}

func TestFrameLogLoss(t *testing.T) {
	preds, actual := predictionFixture(t)

	got, err := FrameLogLoss(preds, actual, "label")
	if err != nil {
		t.Fatalf("FrameLogLoss failed: %v", err)
	}
	want := -(math.Log(0.9) + math.Log(0.7) + math.Log(0.8) + math.Log(0.4)) / 4
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("logloss = %v, want %v", got, want)
	}
}

func TestFrameHitRatioTable(t *testing.T) {
	preds, actual := predictionFixture(t)

	table, err := FrameHitRatioTable(preds, actual, "label")
	if err != nil {
		t.Fatalf("FrameHitRatioTable failed: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("table length = %d, want 2", len(table))
	}
	if math.Abs(table[0]-0.75) > 1e-12 || table[1] != 1.0 {
		t.Errorf("hit ratios = %v, want [0.75 1]", table)
	}
}

func TestFrameMetricsRejectRowMismatch(t *testing.T) {
	preds, _ := predictionFixture(t)
	short, err := frame.New(frame.NewEnumColumn("label", []string{"cat"}))
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}

	if _, err := FrameAccuracy(preds, short, "label"); err == nil {
		t.Error("row count mismatch should be rejected")
	}
}

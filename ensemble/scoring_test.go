package ensemble

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestScoreProbsRMSE(t *testing.T) {
	labels := []int{0, 1}
	probs := mat.NewDense(2, 2, []float64{
		0.8, 0.2,
		0.4, 0.6,
	})

	got, err := scoreProbs(labels, probs, StopRMSE)
	if err != nil {
		t.Fatalf("scoreProbs failed: %v", err)
	}
	// Squared errors against the one-hot targets:
	// 0.04 + 0.04 + 0.16 + 0.16 = 0.4 over 4 entries.
	want := math.Sqrt(0.1)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("rmse = %v, want %v", got, want)
	}
}

func TestScoreProbsAUCNeedsBinary(t *testing.T) {
	labels := []int{0, 1, 2}
	probs := mat.NewDense(3, 3, []float64{
		0.8, 0.1, 0.1,
		0.1, 0.8, 0.1,
		0.1, 0.1, 0.8,
	})
	if _, err := scoreProbs(labels, probs, StopAUC); err == nil {
		t.Error("auc on three classes should be rejected")
	}
}

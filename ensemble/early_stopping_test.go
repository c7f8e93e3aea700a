package ensemble

import "testing"

func TestScoreKeeperStopsOnPlateau(t *testing.T) {
	k := newScoreKeeper(StopLogloss, 2, 1e-3)

	scores := []float64{1.0, 0.8, 0.6, 0.6, 0.6, 0.6}
	stopped := -1
	for i, s := range scores {
		if k.add(s) {
			stopped = i
			break
		}
	}
	if stopped < 0 {
		t.Fatal("keeper never stopped on a flat tail")
	}
	// Windows: [1.0,0.8]=0.9, [0.8,0.6]=0.7, [0.6,0.6]=0.6, then two
	// non-improving windows of 0.6.
	if stopped != 5 {
		t.Errorf("stopped at round %d, want 5", stopped)
	}
	if k.best() != 3 {
		t.Errorf("best round = %d, want 3", k.best())
	}
	if !k.everImproved() {
		t.Error("keeper should have recorded an improvement")
	}
}

func TestScoreKeeperWorseningTrailNeverImproves(t *testing.T) {
	k := newScoreKeeper(StopLogloss, 3, 0.01)

	scores := []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	stopped := -1
	for i, s := range scores {
		if k.add(s) {
			stopped = i
			break
		}
	}
	if stopped != 5 {
		t.Errorf("stopped at round %d, want 5", stopped)
	}
	// The first full window only seeds the baseline.
	if k.best() != 2 {
		t.Errorf("best round = %d, want 2", k.best())
	}
	if k.everImproved() {
		t.Error("a strictly worsening metric must not count as an improvement")
	}
}

func TestScoreKeeperKeepsImproving(t *testing.T) {
	k := newScoreKeeper(StopLogloss, 3, 1e-3)
	for i := 0; i < 50; i++ {
		if k.add(1.0 / float64(i+1)) {
			t.Fatalf("stopped at round %d on a strictly improving metric", i)
		}
	}
}

func TestScoreKeeperMaximizedMetric(t *testing.T) {
	k := newScoreKeeper(StopAUC, 2, 1e-3)

	scores := []float64{0.6, 0.7, 0.8, 0.8, 0.8, 0.8}
	stopped := -1
	for i, s := range scores {
		if k.add(s) {
			stopped = i
			break
		}
	}
	if stopped != 5 {
		t.Errorf("stopped at round %d, want 5", stopped)
	}
}

func TestScoreKeeperToleranceGate(t *testing.T) {
	// Improvements below the relative tolerance do not count.
	k := newScoreKeeper(StopLogloss, 2, 0.05)
	scores := []float64{1.0, 1.0, 0.999, 0.998, 0.997}
	stopped := -1
	for i, s := range scores {
		if k.add(s) {
			stopped = i
			break
		}
	}
	if stopped != 3 {
		t.Errorf("stopped at round %d, want 3", stopped)
	}
}

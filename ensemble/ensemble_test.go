package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/grove/engine"
	"github.com/YuminosukeSato/grove/frame"
	"github.com/YuminosukeSato/grove/metrics"
	"github.com/YuminosukeSato/grove/pkg/errors"
)

// learnableFrame builds n rows where the target follows x1 + x2 > 1,
// so both trainers should separate it almost perfectly in-sample.
func learnableFrame(t *testing.T, n int, seed int64) *frame.Frame {
	t.Helper()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		x1[i] = rng.Float64()
		x2[i] = rng.Float64()
		if x1[i]+x2[i] > 1 {
			y[i] = "pos"
		} else {
			y[i] = "neg"
		}
	}

	f, err := frame.New(
		frame.NewNumericColumn("x1", x1),
		frame.NewNumericColumn("x2", x2),
		frame.NewEnumColumn("y", y),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	return f
}

// colorFrame builds n rows where the target equals an enum feature, so
// that feature should dominate the variable importances.
func colorFrame(t *testing.T, n int, seed int64) *frame.Frame {
	t.Helper()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	palette := []string{"blue", "green", "red"}

	noise := make([]float64, n)
	color := make([]string, n)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		noise[i] = rng.Float64()
		color[i] = palette[rng.IntN(len(palette))]
		y[i] = color[i]
	}

	f, err := frame.New(
		frame.NewNumericColumn("noise", noise),
		frame.NewEnumColumn("color", color),
		frame.NewEnumColumn("y", y),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	return f
}

// noiseFrame builds n rows whose target is independent of the features.
func noiseFrame(t *testing.T, n int, seed int64) *frame.Frame {
	t.Helper()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	x := make([]float64, n)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		x[i] = rng.Float64()
		if rng.Float64() < 0.5 {
			y[i] = "a"
		} else {
			y[i] = "b"
		}
	}

	f, err := frame.New(
		frame.NewNumericColumn("x", x),
		frame.NewEnumColumn("y", y),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	return f
}

func inSampleAccuracy(t *testing.T, m Model, f *frame.Frame) float64 {
	t.Helper()
	preds, err := m.Predict(f)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	acc, err := metrics.FrameAccuracy(preds, f, "y")
	if err != nil {
		t.Fatalf("FrameAccuracy failed: %v", err)
	}
	return acc
}

func TestRandomForestLearnsLinearBoundary(t *testing.T) {
	train := learnableFrame(t, 600, 7)

	rf := NewRandomForest(Params{NTrees: 30, MaxDepth: 10, Seed: 42})
	if err := rf.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if got := rf.Classes(); len(got) != 2 || got[0] != "neg" || got[1] != "pos" {
		t.Errorf("classes = %v, want [neg pos]", got)
	}
	if acc := inSampleAccuracy(t, rf, train); acc < 0.9 {
		t.Errorf("in-sample accuracy = %.3f, want >= 0.9", acc)
	}
}

func TestRandomForestPredictionFrameShape(t *testing.T) {
	train := learnableFrame(t, 300, 11)

	rf := NewRandomForest(Params{NTrees: 10, Seed: 1})
	if err := rf.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	preds, err := rf.Predict(train)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	names := preds.Names()
	if len(names) != 3 || names[0] != "predict" || names[1] != "neg" || names[2] != "pos" {
		t.Fatalf("prediction columns = %v", names)
	}
	if preds.NumRows() != train.NumRows() {
		t.Errorf("prediction rows = %d, want %d", preds.NumRows(), train.NumRows())
	}

	neg, _ := preds.Col("neg")
	pos, _ := preds.Col("pos")
	for i := 0; i < preds.NumRows(); i++ {
		sum := neg.Data[i] + pos.Data[i]
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d probabilities sum to %v", i, sum)
		}
	}
}

func TestRandomForestDeterministicWithSeed(t *testing.T) {
	train := learnableFrame(t, 300, 3)

	run := func() *frame.Frame {
		rf := NewRandomForest(Params{NTrees: 15, Seed: 99})
		if err := rf.Fit(train, nil, "y", nil); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		preds, err := rf.Predict(train)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		return preds
	}

	a, b := run(), run()
	posA, _ := a.Col("pos")
	posB, _ := b.Col("pos")
	for i := 0; i < a.NumRows(); i++ {
		if posA.Data[i] != posB.Data[i] {
			t.Fatalf("row %d probability differs between identical runs: %v vs %v",
				i, posA.Data[i], posB.Data[i])
		}
	}
}

func TestRandomForestParallelMatchesSequential(t *testing.T) {
	train := learnableFrame(t, 300, 5)

	eng, err := engine.Start(engine.Config{MaxThreads: 4, Seed: 1})
	if err != nil {
		t.Fatalf("engine.Start failed: %v", err)
	}
	defer eng.Shutdown()

	seq := NewRandomForest(Params{NTrees: 12, Seed: 21})
	if err := seq.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("sequential Fit failed: %v", err)
	}
	par := NewRandomForest(Params{NTrees: 12, Seed: 21}).WithEngine(eng)
	if err := par.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("parallel Fit failed: %v", err)
	}

	predsSeq, _ := seq.Predict(train)
	predsPar, _ := par.Predict(train)
	posSeq, _ := predsSeq.Col("pos")
	posPar, _ := predsPar.Col("pos")
	for i := 0; i < train.NumRows(); i++ {
		if posSeq.Data[i] != posPar.Data[i] {
			t.Fatalf("row %d differs between engine and sequential build", i)
		}
	}
}

func TestGBMBinaryClassification(t *testing.T) {
	train := learnableFrame(t, 600, 13)

	gbm := NewGBM(Params{NTrees: 40, MaxDepth: 4, LearnRate: 0.2, Seed: 42})
	if err := gbm.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if acc := inSampleAccuracy(t, gbm, train); acc < 0.9 {
		t.Errorf("in-sample accuracy = %.3f, want >= 0.9", acc)
	}
}

func TestGBMMulticlassClassification(t *testing.T) {
	train := colorFrame(t, 400, 17)

	gbm := NewGBM(Params{NTrees: 20, MaxDepth: 3, Seed: 7})
	if err := gbm.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if got := len(gbm.Classes()); got != 3 {
		t.Fatalf("classes = %d, want 3", got)
	}
	if acc := inSampleAccuracy(t, gbm, train); acc < 0.95 {
		t.Errorf("in-sample accuracy = %.3f, want >= 0.95", acc)
	}
}

func TestGBMEarlyStoppingOnNoise(t *testing.T) {
	train := noiseFrame(t, 300, 23)
	valid := noiseFrame(t, 150, 29)

	gbm := NewGBM(Params{
		NTrees:            100,
		MaxDepth:          4,
		LearnRate:         0.3,
		StoppingRounds:    3,
		StoppingTolerance: 0.01,
		Seed:              5,
	})
	if err := gbm.Fit(train, valid, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if gbm.NIterations() == 100 {
		t.Error("expected early stopping on an unlearnable target")
	}
	if len(gbm.ScoringHistory()) == 0 {
		t.Error("scoring history should not be empty")
	}
}

func TestGBMVarImpIgnoresDiscardedRounds(t *testing.T) {
	train := noiseFrame(t, 300, 23)
	valid := noiseFrame(t, 150, 29)

	stopped := NewGBM(Params{
		NTrees:            100,
		MaxDepth:          4,
		LearnRate:         0.3,
		StoppingRounds:    3,
		StoppingTolerance: 0.01,
		Seed:              5,
	})
	if err := stopped.Fit(train, valid, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	kept := stopped.NIterations()
	if kept == 100 {
		t.Fatal("expected early stopping on an unlearnable target")
	}

	// Iteration rngs depend only on seed and round, so a booster
	// trained for exactly the kept rounds grows identical trees. Its
	// importances must match: gains from discarded rounds don't count.
	exact := NewGBM(Params{
		NTrees:    kept,
		MaxDepth:  4,
		LearnRate: 0.3,
		Seed:      5,
	})
	if err := exact.Fit(train, valid, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	impStopped, err := stopped.VarImp()
	if err != nil {
		t.Fatalf("VarImp failed: %v", err)
	}
	impExact, err := exact.VarImp()
	if err != nil {
		t.Fatalf("VarImp failed: %v", err)
	}
	if len(impStopped) != len(impExact) {
		t.Fatalf("importance entries = %d vs %d", len(impStopped), len(impExact))
	}
	for i := range impStopped {
		if impStopped[i].Variable != impExact[i].Variable {
			t.Fatalf("entry %d variable %q vs %q", i, impStopped[i].Variable, impExact[i].Variable)
		}
		if math.Abs(impStopped[i].Relative-impExact[i].Relative) > 1e-9 {
			t.Errorf("entry %d relative importance %v vs %v",
				i, impStopped[i].Relative, impExact[i].Relative)
		}
	}
}

func TestRandomForestEarlyStoppingScoresEachTree(t *testing.T) {
	train := learnableFrame(t, 300, 31)
	valid := learnableFrame(t, 150, 37)

	rf := NewRandomForest(Params{
		NTrees:         40,
		StoppingRounds: 3,
		Seed:           9,
	})
	if err := rf.Fit(train, valid, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// Every grown tree gets a scoring event; after an early stop the
	// forest is truncated but the history keeps the scored tail.
	history := rf.ScoringHistory()
	if len(history) < rf.NTreesBuilt() {
		t.Errorf("history length = %d, trees = %d", len(history), rf.NTreesBuilt())
	}
	for i, ev := range history {
		if ev.Trees != i+1 {
			t.Fatalf("event %d reports %d trees", i, ev.Trees)
		}
		if math.IsNaN(ev.ValidMetric) {
			t.Fatalf("event %d has no validation metric", i)
		}
	}
}

func TestVarImpRanksInformativeFeatureFirst(t *testing.T) {
	train := colorFrame(t, 400, 41)

	rf := NewRandomForest(Params{NTrees: 20, Seed: 3})
	if err := rf.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	imp, err := rf.VarImp()
	if err != nil {
		t.Fatalf("VarImp failed: %v", err)
	}
	if len(imp) != 2 {
		t.Fatalf("importance entries = %d, want 2", len(imp))
	}
	if imp[0].Variable != "color" {
		t.Errorf("top variable = %q, want color", imp[0].Variable)
	}
	if imp[0].Scaled != 1 {
		t.Errorf("top scaled importance = %v, want 1", imp[0].Scaled)
	}
	total := 0.0
	for _, e := range imp {
		total += e.Percentage
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("percentages sum to %v", total)
	}
}

func TestPredictBeforeFit(t *testing.T) {
	rf := NewRandomForest(Params{})
	if _, err := rf.Predict(learnableFrame(t, 10, 1)); err == nil {
		t.Fatal("expected an error before Fit")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFittedError, got %v", err)
		}
	}
}

func TestPredictRejectsMissingColumn(t *testing.T) {
	train := learnableFrame(t, 200, 2)

	rf := NewRandomForest(Params{NTrees: 5, Seed: 1})
	if err := rf.Fit(train, nil, "y", nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	crippled, err := train.Drop([]string{"x2"})
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if _, err := rf.Predict(crippled); err == nil {
		t.Fatal("expected a schema error")
	} else {
		var se *errors.SchemaError
		if !errors.As(err, &se) {
			t.Errorf("expected SchemaError, got %v", err)
		}
	}
}

func TestFitRejectsNumericTarget(t *testing.T) {
	f, err := frame.New(
		frame.NewNumericColumn("x", []float64{1, 2, 3, 4}),
		frame.NewNumericColumn("y", []float64{0, 1, 0, 1}),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}

	rf := NewRandomForest(Params{NTrees: 5})
	if err := rf.Fit(f, nil, "y", nil); err == nil {
		t.Fatal("numeric target should be rejected")
	}
}

func TestParamsValidation(t *testing.T) {
	cases := []struct {
		name string
		p    Params
	}{
		{"bad sample rate", Params{SampleRate: 1.5}},
		{"bad learn rate", Params{LearnRate: -0.1}},
		{"bad nbins", Params{NBins: 1}},
		{"bad stopping metric", Params{StoppingMetric: "mape"}},
	}
	train := learnableFrame(t, 50, 1)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gbm := NewGBM(tc.p)
			if err := gbm.Fit(train, nil, "y", nil); err == nil {
				t.Errorf("%s: expected a validation error", tc.name)
			}
		})
	}
}

func TestTreeRoutesMissingValuesLeft(t *testing.T) {
	tree := Tree{Nodes: []Node{
		{NodeID: 0, LeftChild: 1, RightChild: 2, NodeType: NumericalNode, SplitFeature: 0, Threshold: 0.5},
		{NodeID: 1, LeftChild: -1, RightChild: -1, LeafValue: -1},
		{NodeID: 2, LeftChild: -1, RightChild: -1, LeafValue: 1},
	}}

	if got := tree.Predict([]float64{math.NaN()}); got != -1 {
		t.Errorf("missing value routed to %v, want left leaf -1", got)
	}
	if got := tree.Predict([]float64{0.9}); got != 1 {
		t.Errorf("0.9 routed to %v, want right leaf 1", got)
	}
}

func TestModelIDDefaultsToAlgoPrefix(t *testing.T) {
	rf := NewRandomForest(Params{})
	gbm := NewGBM(Params{ModelID: "my_gbm"})

	if rf.Algo() != "drf" {
		t.Errorf("algo = %q", rf.Algo())
	}
	if gbm.ModelID() != "my_gbm" {
		t.Errorf("model id = %q", gbm.ModelID())
	}
	if rf.ModelID() == "" {
		t.Error("generated model id is empty")
	}
	// Generated ids embed the algorithm name.
	if want := fmt.Sprintf("%s_", rf.Algo()); len(rf.ModelID()) <= len(want) {
		t.Errorf("model id %q looks truncated", rf.ModelID())
	}
}

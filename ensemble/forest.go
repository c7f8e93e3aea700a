package ensemble

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/grove/engine"
	"github.com/YuminosukeSato/grove/frame"
	"github.com/YuminosukeSato/grove/pkg/errors"
	"github.com/YuminosukeSato/grove/pkg/log"
)

// RandomForest is a bagged ensemble of gini-split classification trees.
// Each tree trains on a random row sample and considers a random
// feature subset at every split; prediction averages the per-tree leaf
// class distributions.
type RandomForest struct {
	modelBase
	trees    []Tree
	nClasses int
}

// NewRandomForest builds an untrained forest. Zero-valued fields of p
// take Random Forest defaults.
func NewRandomForest(p Params) *RandomForest {
	return &RandomForest{modelBase: newModelBase("drf", p.withRFDefaults())}
}

// WithEngine attaches a compute engine for parallel tree building and
// prediction. Returns the model for chaining.
func (rf *RandomForest) WithEngine(eng *engine.Engine) *RandomForest {
	rf.eng = eng
	return rf
}

// Fit trains the forest. With StoppingRounds > 0 or ScoreEachIteration
// the trees are grown one at a time with a scoring round after each;
// otherwise they are grown in parallel across the engine threads.
func (rf *RandomForest) Fit(train, valid *frame.Frame, target string, features []string) (err error) {
	defer errors.Recover(&err, "RandomForest.Fit")

	p := rf.params
	if err := p.validate(); err != nil {
		return err
	}
	td, err := rf.prepare(train, valid, target, features)
	if err != nil {
		return err
	}
	rf.nClasses = len(rf.classes)
	if p.StoppingMetric == StopAUC && rf.nClasses != 2 {
		return errors.NewValidationError("stopping_metric", "auc needs a binary target", string(p.StoppingMetric))
	}

	seed := p.Seed
	if seed == 0 && rf.eng != nil {
		seed = rf.eng.Seed()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mtries := p.Mtries
	if mtries < 0 {
		mtries = int(math.Sqrt(float64(len(td.meta))))
		if mtries < 1 {
			mtries = 1
		}
	}

	start := time.Now()
	rf.logger.Info("Building Random Forest",
		log.ModelIDKey, rf.modelID,
		log.OperationKey, log.OperationFit,
		log.RowsKey, len(td.labels),
		log.FeaturesKey, len(td.meta),
		log.TargetKey, target,
		log.ClassesKey, rf.nClasses,
		log.TreesKey, p.NTrees,
		log.SeedKey, seed,
	)

	buildOne := func(idx int) Tree {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+uint64(idx)+1))
		rows := sampleRows(len(td.labels), p.SampleRate, rng)
		b := &treeBuilder{
			x:        td.x,
			maxDepth: p.MaxDepth,
			minRows:  p.MinRows,
			mtries:   mtries,
			features: sampleColumns(len(td.meta), p.ColSampleRate, rng),
			rng:      rng,
			find: func(rows, feats []int) splitInfo {
				return findBestGiniSplit(td.x, rows, feats, td.meta,
					td.labels, rf.nClasses, p.NBins, p.MinRows, p.MinSplitImprovement)
			},
			leaf: func(rows []int) (float64, []float64) {
				dist := make([]float64, rf.nClasses)
				for _, r := range rows {
					dist[td.labels[r]]++
				}
				best := 0
				for c := range dist {
					if dist[c] > dist[best] {
						best = c
					}
					dist[c] /= float64(len(rows))
				}
				return float64(best), dist
			},
		}
		return b.build(rows)
	}

	if p.StoppingRounds > 0 || p.ScoreEachIteration {
		if err := rf.fitScored(td, p, buildOne); err != nil {
			return err
		}
	} else {
		rf.trees = make([]Tree, p.NTrees)
		if err := rf.parallelize(p.NTrees, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				rf.trees[i] = buildOne(i)
			}
		}); err != nil {
			return err
		}
		if err := rf.scoreFinal(td, p); err != nil {
			return err
		}
	}

	for i := range rf.trees {
		rf.addTreeGains(&rf.trees[i])
	}
	rf.fitted = true
	rf.logger.Info("Random Forest built",
		log.ModelIDKey, rf.modelID,
		log.TreesKey, len(rf.trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitScored grows trees one at a time, scoring after each and stopping
// when the rolling validation window stops improving. On an early stop
// the forest is truncated to the best-scoring round.
func (rf *RandomForest) fitScored(td *trainData, p Params, buildOne func(int) Tree) error {
	n := len(td.labels)
	trainSum := newScoreMatrix(n, rf.nClasses)
	var validSum *scoreMatrix
	if td.validX != nil {
		validSum = newScoreMatrix(len(td.validLabels), rf.nClasses)
	}

	var keeper *scoreKeeper
	if p.StoppingRounds > 0 {
		keeper = newScoreKeeper(p.StoppingMetric, p.StoppingRounds, p.StoppingTolerance)
	}

	for it := 0; it < p.NTrees; it++ {
		tree := buildOne(it)
		rf.trees = append(rf.trees, tree)

		accumulateDist(trainSum, &tree, td.x.RawMatrix().Data, len(td.meta))
		trainMetric, err := scoreProbs(td.labels, averageDist(trainSum, it+1).dense(), p.StoppingMetric)
		if err != nil {
			return err
		}
		validMetric := math.NaN()
		if validSum != nil {
			accumulateDist(validSum, &tree, td.validX.RawMatrix().Data, len(td.meta))
			validMetric, err = scoreProbs(td.validLabels, averageDist(validSum, it+1).dense(), p.StoppingMetric)
			if err != nil {
				return err
			}
		}
		rf.recordScore(it, it+1, trainMetric, validMetric)

		if keeper == nil {
			continue
		}
		watched := validMetric
		if validSum == nil {
			watched = trainMetric
		}
		if keeper.add(watched) {
			best := keeper.best() + 1
			rf.logger.Info("Early stopping",
				log.ModelIDKey, rf.modelID,
				log.TreesKey, best,
				log.StoppingMetricKey, string(p.StoppingMetric),
			)
			rf.trees = rf.trees[:best]
			if !keeper.everImproved() {
				errors.Warn(errors.NewConvergenceWarning("drf", it+1,
					"stopping metric never improved; model kept at first scored round"))
			}
			return nil
		}
	}
	return nil
}

// scoreFinal records one scoring event for a forest built without
// per-iteration scoring.
func (rf *RandomForest) scoreFinal(td *trainData, p Params) error {
	trainProbs := rf.distProbs(td.x.RawMatrix().Data, len(td.labels))
	trainMetric, err := scoreProbs(td.labels, trainProbs.dense(), p.StoppingMetric)
	if err != nil {
		return err
	}
	validMetric := math.NaN()
	if td.validX != nil {
		validProbs := rf.distProbs(td.validX.RawMatrix().Data, len(td.validLabels))
		validMetric, err = scoreProbs(td.validLabels, validProbs.dense(), p.StoppingMetric)
		if err != nil {
			return err
		}
	}
	rf.recordScore(len(rf.trees)-1, len(rf.trees), trainMetric, validMetric)
	return nil
}

// distProbs averages the leaf class distributions of every tree over
// the packed row-major sample data.
func (rf *RandomForest) distProbs(data []float64, n int) *scoreMatrix {
	probs := newScoreMatrix(n, rf.nClasses)
	stride := len(rf.features)
	for i := 0; i < n; i++ {
		row := data[i*stride : (i+1)*stride]
		out := probs.row(i)
		for t := range rf.trees {
			for c, v := range rf.trees[t].PredictDist(row) {
				out[c] += v
			}
		}
		for c := range out {
			out[c] /= float64(len(rf.trees))
		}
	}
	return probs
}

// accumulateDist adds one tree's leaf distributions onto the running sums.
func accumulateDist(sum *scoreMatrix, tree *Tree, data []float64, stride int) {
	for i := 0; i < sum.rows; i++ {
		row := data[i*stride : (i+1)*stride]
		out := sum.row(i)
		for c, v := range tree.PredictDist(row) {
			out[c] += v
		}
	}
}

// averageDist divides the running sums by the tree count.
func averageDist(sum *scoreMatrix, trees int) *scoreMatrix {
	avg := newScoreMatrix(sum.rows, sum.cols)
	for i := range sum.data {
		avg.data[i] = sum.data[i] / float64(trees)
	}
	return avg
}

// Predict classifies every row of f, returning the prediction frame.
func (rf *RandomForest) Predict(f *frame.Frame) (*frame.Frame, error) {
	if !rf.fitted {
		return nil, errors.NewNotFittedError(rf.modelID, "Predict")
	}
	x, err := rf.featureMatrix(f)
	if err != nil {
		return nil, err
	}
	n, _ := x.Dims()

	probs := newScoreMatrix(n, rf.nClasses)
	data := x.RawMatrix().Data
	stride := len(rf.features)
	if err := rf.parallelize(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := data[i*stride : (i+1)*stride]
			out := probs.row(i)
			for t := range rf.trees {
				for c, v := range rf.trees[t].PredictDist(row) {
					out[c] += v
				}
			}
			for c := range out {
				out[c] /= float64(len(rf.trees))
			}
		}
	}); err != nil {
		return nil, err
	}

	rf.logger.Info("Predicted",
		log.ModelIDKey, rf.modelID,
		log.OperationKey, log.OperationPredict,
		log.RowsKey, n,
	)
	return rf.predictionFrame(probs.dense())
}

// NTreesBuilt returns the number of trees in the fitted forest, which
// can be fewer than requested after early stopping.
func (rf *RandomForest) NTreesBuilt() int { return len(rf.trees) }

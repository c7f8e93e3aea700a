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

// GBM is a gradient boosted ensemble of second-order regression trees.
// Binary targets grow one tree per iteration on the positive-class
// log-odds; multiclass targets grow one tree per class on softmax
// scores. Leaf values carry the learning rate already applied.
type GBM struct {
	modelBase
	obj        objective
	baseScores []float64
	trees      [][]Tree // [iteration][score column]
	nClasses   int
}

// NewGBM builds an untrained booster. Zero-valued fields of p take GBM
// defaults.
func NewGBM(p Params) *GBM {
	return &GBM{modelBase: newModelBase("gbm", p.withGBMDefaults())}
}

// WithEngine attaches a compute engine for parallel per-class tree
// building and prediction. Returns the model for chaining.
func (g *GBM) WithEngine(eng *engine.Engine) *GBM {
	g.eng = eng
	return g
}

// Fit trains the booster. Scoring runs every iteration when early
// stopping or ScoreEachIteration is on, otherwise once at the end. On
// an early stop the ensemble is truncated to the best-scoring round.
func (g *GBM) Fit(train, valid *frame.Frame, target string, features []string) (err error) {
	defer errors.Recover(&err, "GBM.Fit")

	p := g.params
	if err := p.validate(); err != nil {
		return err
	}
	td, err := g.prepare(train, valid, target, features)
	if err != nil {
		return err
	}
	g.nClasses = len(g.classes)
	if p.StoppingMetric == StopAUC && g.nClasses != 2 {
		return errors.NewValidationError("stopping_metric", "auc needs a binary target", string(p.StoppingMetric))
	}
	if g.nClasses == 2 {
		g.obj = binomialObjective{}
	} else {
		g.obj = multinomialObjective{nClasses: g.nClasses}
	}

	seed := p.Seed
	if seed == 0 && g.eng != nil {
		seed = g.eng.Seed()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	n := len(td.labels)
	cols := g.obj.columns()
	stride := len(td.meta)
	data := td.x.RawMatrix().Data

	g.baseScores = make([]float64, cols)
	scores := newScoreMatrix(n, cols)
	for k := 0; k < cols; k++ {
		g.baseScores[k] = g.obj.baseScore(td.labels, k)
		for i := 0; i < n; i++ {
			scores.set(i, k, g.baseScores[k])
		}
	}
	probs := newScoreMatrix(n, g.nClasses)

	var validScores, validProbs *scoreMatrix
	var validData []float64
	if td.validX != nil {
		nv := len(td.validLabels)
		validScores = newScoreMatrix(nv, cols)
		for k := 0; k < cols; k++ {
			for i := 0; i < nv; i++ {
				validScores.set(i, k, g.baseScores[k])
			}
		}
		validProbs = newScoreMatrix(nv, g.nClasses)
		validData = td.validX.RawMatrix().Data
	}

	var keeper *scoreKeeper
	if p.StoppingRounds > 0 {
		keeper = newScoreKeeper(p.StoppingMetric, p.StoppingRounds, p.StoppingTolerance)
	}

	start := time.Now()
	g.logger.Info("Building GBM",
		log.ModelIDKey, g.modelID,
		log.OperationKey, log.OperationFit,
		log.RowsKey, n,
		log.FeaturesKey, stride,
		log.TargetKey, target,
		log.ClassesKey, g.nClasses,
		log.TreesKey, p.NTrees,
		log.SeedKey, seed,
	)

	g.trees = g.trees[:0]
	for it := 0; it < p.NTrees; it++ {
		g.obj.probabilities(scores, probs)

		iterRng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+uint64(it)))
		rows := sampleRows(n, p.SampleRate, iterRng)
		pool := sampleColumns(stride, p.ColSampleRate, iterRng)

		iterTrees := make([]Tree, cols)
		if err := g.parallelize(cols, func(lo, hi int) {
			grads := make([]float64, n)
			hess := make([]float64, n)
			for k := lo; k < hi; k++ {
				g.obj.gradients(td.labels, probs, k, grads, hess)
				b := &treeBuilder{
					x:        td.x,
					maxDepth: p.MaxDepth,
					minRows:  p.MinRows,
					features: pool,
					rng:      rand.New(rand.NewPCG(uint64(seed)+1, uint64(seed)+uint64(it*cols+k))),
					find: func(rows, feats []int) splitInfo {
						return findBestGradSplit(td.x, rows, feats, td.meta,
							grads, hess, p.NBins, p.MinRows, p.MinSplitImprovement)
					},
					leaf: func(rows []int) (float64, []float64) {
						sumG, sumH := 0.0, 0.0
						for _, r := range rows {
							sumG += grads[r]
							sumH += hess[r]
						}
						return -sumG / (sumH + hessEpsilon) * p.LearnRate, nil
					},
				}
				iterTrees[k] = b.build(rows)
			}
		}); err != nil {
			return err
		}

		for k := 0; k < cols; k++ {
			tree := &iterTrees[k]
			for i := 0; i < n; i++ {
				scores.add(i, k, tree.Predict(data[i*stride:(i+1)*stride]))
			}
			if validScores != nil {
				for i := 0; i < validScores.rows; i++ {
					validScores.add(i, k, tree.Predict(validData[i*stride:(i+1)*stride]))
				}
			}
		}
		g.trees = append(g.trees, iterTrees)

		if keeper == nil && !p.ScoreEachIteration && it != p.NTrees-1 {
			continue
		}

		g.obj.probabilities(scores, probs)
		trainMetric, err := scoreProbs(td.labels, probs.dense(), p.StoppingMetric)
		if err != nil {
			return err
		}
		validMetric := math.NaN()
		if validScores != nil {
			g.obj.probabilities(validScores, validProbs)
			validMetric, err = scoreProbs(td.validLabels, validProbs.dense(), p.StoppingMetric)
			if err != nil {
				return err
			}
		}
		g.recordScore(it, it+1, trainMetric, validMetric)

		if keeper == nil {
			continue
		}
		watched := validMetric
		if validScores == nil {
			watched = trainMetric
		}
		if keeper.add(watched) {
			best := keeper.best() + 1
			g.logger.Info("Early stopping",
				log.ModelIDKey, g.modelID,
				log.IterationKey, best,
				log.StoppingMetricKey, string(p.StoppingMetric),
			)
			g.trees = g.trees[:best]
			if !keeper.everImproved() {
				errors.Warn(errors.NewConvergenceWarning("gbm", it+1,
					"stopping metric never improved; model kept at first scored round"))
			}
			break
		}
	}

	// Importances come from the kept rounds only, so gains are summed
	// after any early-stop truncation.
	for it := range g.trees {
		for k := range g.trees[it] {
			g.addTreeGains(&g.trees[it][k])
		}
	}
	g.fitted = true
	g.logger.Info("GBM built",
		log.ModelIDKey, g.modelID,
		log.IterationKey, len(g.trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict classifies every row of f, returning the prediction frame.
func (g *GBM) Predict(f *frame.Frame) (*frame.Frame, error) {
	if !g.fitted {
		return nil, errors.NewNotFittedError(g.modelID, "Predict")
	}
	x, err := g.featureMatrix(f)
	if err != nil {
		return nil, err
	}
	n, _ := x.Dims()
	cols := g.obj.columns()
	stride := len(g.features)
	data := x.RawMatrix().Data

	scores := newScoreMatrix(n, cols)
	if err := g.parallelize(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := data[i*stride : (i+1)*stride]
			out := scores.row(i)
			for k := 0; k < cols; k++ {
				out[k] = g.baseScores[k]
			}
			for it := range g.trees {
				for k := 0; k < cols; k++ {
					out[k] += g.trees[it][k].Predict(row)
				}
			}
		}
	}); err != nil {
		return nil, err
	}

	probs := newScoreMatrix(n, g.nClasses)
	g.obj.probabilities(scores, probs)

	g.logger.Info("Predicted",
		log.ModelIDKey, g.modelID,
		log.OperationKey, log.OperationPredict,
		log.RowsKey, n,
	)
	return g.predictionFrame(probs.dense())
}

// NIterations returns the number of boosting rounds kept in the fitted
// model, which can be fewer than requested after early stopping.
func (g *GBM) NIterations() int { return len(g.trees) }

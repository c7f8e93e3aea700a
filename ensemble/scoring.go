package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/grove/metrics"
	"github.com/YuminosukeSato/grove/pkg/errors"
)

// dense wraps the flat boosting state as a gonum matrix without copying.
func (m *scoreMatrix) dense() *mat.Dense {
	return mat.NewDense(m.rows, m.cols, m.data)
}

// scoreProbs evaluates a stopping metric on per-row class probabilities.
func scoreProbs(labels []int, probs *mat.Dense, metric StoppingMetric) (float64, error) {
	n, k := probs.Dims()
	if n != len(labels) {
		return 0, errors.NewDimensionError("score", len(labels), n, 0)
	}

	yTrue := mat.NewVecDense(n, nil)
	for i, y := range labels {
		yTrue.SetVec(i, float64(y))
	}

	switch metric {
	case StopLogloss:
		return metrics.LogLoss(yTrue, probs)

	case StopMisclassification:
		yPred := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			best := 0
			for c := 1; c < k; c++ {
				if probs.At(i, c) > probs.At(i, best) {
					best = c
				}
			}
			yPred.SetVec(i, float64(best))
		}
		acc, err := metrics.Accuracy(yTrue, yPred)
		if err != nil {
			return 0, err
		}
		return 1 - acc, nil

	case StopRMSE:
		// RMSE of the flattened probability matrix against the one-hot
		// target.
		flat := make([]float64, n*k)
		truth := make([]float64, n*k)
		for i := 0; i < n; i++ {
			truth[i*k+labels[i]] = 1
			for c := 0; c < k; c++ {
				flat[i*k+c] = probs.At(i, c)
			}
		}
		return metrics.RMSE(mat.NewVecDense(n*k, truth), mat.NewVecDense(n*k, flat))

	case StopAUC:
		if k != 2 {
			return 0, errors.NewValueError("score", "auc needs a binary target")
		}
		score := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			score.SetVec(i, probs.At(i, 1))
		}
		return metrics.AUC(yTrue, score)

	default:
		return 0, errors.NewValidationError("stopping_metric", "unknown metric", string(metric))
	}
}

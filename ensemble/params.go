package ensemble

import (
	"github.com/YuminosukeSato/grove/pkg/errors"
)

// StoppingMetric selects the validation metric watched by early stopping.
type StoppingMetric string

const (
	// StopLogloss stops on validation cross-entropy (minimized).
	StopLogloss StoppingMetric = "logloss"
	// StopMisclassification stops on validation error rate (minimized).
	StopMisclassification StoppingMetric = "misclassification"
	// StopRMSE stops on the RMSE of the predicted class probabilities
	// against the one-hot target (minimized).
	StopRMSE StoppingMetric = "rmse"
	// StopAUC stops on binary validation AUC (maximized).
	StopAUC StoppingMetric = "auc"
)

// minimized reports whether lower values of the metric are better.
func (m StoppingMetric) minimized() bool {
	return m != StopAUC
}

// Params contains all training hyperparameters shared by Random Forest
// and GBM. Zero values are replaced by per-algorithm defaults at Fit.
type Params struct {
	// ModelID is an optional identifier used in logs and reports.
	ModelID string `json:"model_id" yaml:"model_id"`

	// Basic parameters
	NTrees   int `json:"ntrees" yaml:"ntrees"`
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
	MinRows  int `json:"min_rows" yaml:"min_rows"`

	// Boosting
	LearnRate float64 `json:"learn_rate" yaml:"learn_rate"`

	// Sampling
	SampleRate    float64 `json:"sample_rate" yaml:"sample_rate"`
	ColSampleRate float64 `json:"col_sample_rate" yaml:"col_sample_rate"`
	Mtries        int     `json:"mtries" yaml:"mtries"` // -1: sqrt(#features)

	// Histogram parameters
	NBins               int     `json:"nbins" yaml:"nbins"`
	MinSplitImprovement float64 `json:"min_split_improvement" yaml:"min_split_improvement"`

	// Early stopping
	StoppingRounds     int            `json:"stopping_rounds" yaml:"stopping_rounds"`
	StoppingTolerance  float64        `json:"stopping_tolerance" yaml:"stopping_tolerance"`
	StoppingMetric     StoppingMetric `json:"stopping_metric" yaml:"stopping_metric"`
	ScoreEachIteration bool           `json:"score_each_iteration" yaml:"score_each_iteration"`

	// Other
	Seed int64 `json:"seed" yaml:"seed"`
}

// withRFDefaults fills zero values with Random Forest defaults.
func (p Params) withRFDefaults() Params {
	if p.NTrees == 0 {
		p.NTrees = 50
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = 20
	}
	if p.MinRows == 0 {
		p.MinRows = 1
	}
	if p.SampleRate == 0 {
		p.SampleRate = 0.632
	}
	if p.ColSampleRate == 0 {
		p.ColSampleRate = 1.0
	}
	if p.Mtries == 0 {
		p.Mtries = -1
	}
	if p.NBins == 0 {
		p.NBins = 20
	}
	if p.StoppingTolerance == 0 {
		p.StoppingTolerance = 1e-3
	}
	if p.StoppingMetric == "" {
		p.StoppingMetric = StopLogloss
	}
	return p
}

// withGBMDefaults fills zero values with GBM defaults.
func (p Params) withGBMDefaults() Params {
	if p.NTrees == 0 {
		p.NTrees = 50
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = 5
	}
	if p.MinRows == 0 {
		p.MinRows = 10
	}
	if p.LearnRate == 0 {
		p.LearnRate = 0.1
	}
	if p.SampleRate == 0 {
		p.SampleRate = 1.0
	}
	if p.ColSampleRate == 0 {
		p.ColSampleRate = 1.0
	}
	if p.Mtries == 0 {
		p.Mtries = -1
	}
	if p.NBins == 0 {
		p.NBins = 20
	}
	if p.StoppingTolerance == 0 {
		p.StoppingTolerance = 1e-3
	}
	if p.StoppingMetric == "" {
		p.StoppingMetric = StopLogloss
	}
	return p
}

// validate rejects out-of-range hyperparameters after defaults applied.
func (p Params) validate() error {
	if p.NTrees < 1 {
		return errors.NewValidationError("ntrees", "must be >= 1", p.NTrees)
	}
	if p.MaxDepth < 1 {
		return errors.NewValidationError("max_depth", "must be >= 1", p.MaxDepth)
	}
	if p.MinRows < 1 {
		return errors.NewValidationError("min_rows", "must be >= 1", p.MinRows)
	}
	if p.LearnRate < 0 || p.LearnRate > 1 {
		return errors.NewValidationError("learn_rate", "must be in [0, 1]", p.LearnRate)
	}
	if p.SampleRate <= 0 || p.SampleRate > 1 {
		return errors.NewValidationError("sample_rate", "must be in (0, 1]", p.SampleRate)
	}
	if p.ColSampleRate <= 0 || p.ColSampleRate > 1 {
		return errors.NewValidationError("col_sample_rate", "must be in (0, 1]", p.ColSampleRate)
	}
	if p.NBins < 2 {
		return errors.NewValidationError("nbins", "must be >= 2", p.NBins)
	}
	if p.StoppingRounds < 0 {
		return errors.NewValidationError("stopping_rounds", "must be >= 0", p.StoppingRounds)
	}
	if p.StoppingTolerance < 0 {
		return errors.NewValidationError("stopping_tolerance", "must be >= 0", p.StoppingTolerance)
	}
	switch p.StoppingMetric {
	case StopLogloss, StopMisclassification, StopRMSE, StopAUC:
	default:
		return errors.NewValidationError("stopping_metric", "unknown metric", string(p.StoppingMetric))
	}
	return nil
}

package ensemble

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/grove/engine"
	"github.com/YuminosukeSato/grove/frame"
	"github.com/YuminosukeSato/grove/pkg/errors"
	"github.com/YuminosukeSato/grove/pkg/log"
)

// Model is the common surface of the fitted tree ensembles.
type Model interface {
	// ModelID returns the model identifier used in logs and reports.
	ModelID() string
	// Algo returns the algorithm name ("drf" or "gbm").
	Algo() string
	// Classes returns the target level dictionary after Fit.
	Classes() []string
	// Fit trains on train, optionally scoring against valid, with the
	// named target column. A nil features slice means every non-target
	// column.
	Fit(train, valid *frame.Frame, target string, features []string) error
	// Predict returns a frame with a "predict" label column followed by
	// one probability column per target level.
	Predict(f *frame.Frame) (*frame.Frame, error)
	// VarImp returns split-gain variable importances, largest first.
	VarImp() ([]VarImpEntry, error)
	// ScoringHistory returns the per-scoring-round metric trail.
	ScoringHistory() []ScoringEvent
}

// VarImpEntry is one row of the variable importance table.
type VarImpEntry struct {
	Variable   string  `json:"variable" yaml:"variable"`
	Relative   float64 `json:"relative_importance" yaml:"relative_importance"`
	Scaled     float64 `json:"scaled_importance" yaml:"scaled_importance"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// ScoringEvent is one row of the scoring history.
type ScoringEvent struct {
	Iteration   int       `json:"iteration" yaml:"iteration"`
	Trees       int       `json:"trees" yaml:"trees"`
	TrainMetric float64   `json:"train_metric" yaml:"train_metric"`
	ValidMetric float64   `json:"valid_metric" yaml:"valid_metric"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

// modelBase holds the state shared by RandomForest and GBM.
type modelBase struct {
	params Params
	eng    *engine.Engine
	logger log.Logger

	modelID  string
	algo     string
	target   string
	features []frame.FeatureMeta
	// levels[j] is the training dictionary of enum feature j, nil for
	// numeric features. Prediction frames are remapped through it so
	// level indices stay comparable; unseen levels become missing.
	levels  [][]string
	classes []string
	fitted  bool

	history []ScoringEvent
	rawImp  []float64
}

func newModelBase(algo string, p Params) modelBase {
	id := p.ModelID
	if id == "" {
		id = fmt.Sprintf("%s_%d", algo, time.Now().UnixNano())
	}
	return modelBase{
		params:  p,
		algo:    algo,
		modelID: id,
		logger:  log.GetLoggerWithName("ensemble"),
	}
}

func (m *modelBase) ModelID() string { return m.modelID }

func (m *modelBase) Algo() string { return m.algo }

func (m *modelBase) Classes() []string { return m.classes }

func (m *modelBase) ScoringHistory() []ScoringEvent { return m.history }

// trainData is the packed training input handed to the tree builders.
type trainData struct {
	x      *mat.Dense
	labels []int
	meta   []frame.FeatureMeta

	validX      *mat.Dense
	validLabels []int
}

// prepare resolves the feature list, validates the target, packs the
// training (and optional validation) frame into matrices, and stores
// the schema on the model. Rows with a missing target are dropped.
func (m *modelBase) prepare(train, valid *frame.Frame, target string, features []string) (*trainData, error) {
	if train == nil || train.NumRows() == 0 {
		return nil, errors.WithStack(errors.ErrEmptyFrame)
	}

	targetCol, err := train.Col(target)
	if err != nil {
		return nil, err
	}
	if targetCol.Type != frame.Enum {
		return nil, errors.NewSchemaError(target, "target must be a categorical column")
	}
	if targetCol.Cardinality() < 2 {
		return nil, errors.NewSchemaError(target, "target needs at least 2 levels")
	}

	if features == nil {
		for _, name := range train.Names() {
			if name != target {
				features = append(features, name)
			}
		}
	}
	if len(features) == 0 {
		return nil, errors.NewValueError("Fit", "no feature columns")
	}
	for _, name := range features {
		if name == target {
			return nil, errors.NewSchemaError(name, "target cannot be a feature")
		}
	}

	meta, err := train.Meta(features)
	if err != nil {
		return nil, err
	}

	levels := make([][]string, len(features))
	for j, name := range features {
		c, _ := train.Col(name)
		if c.Type == frame.Enum {
			levels[j] = c.Levels()
		}
	}

	keep := make([]int, 0, train.NumRows())
	for i := 0; i < train.NumRows(); i++ {
		if !targetCol.IsNA(i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, errors.NewValueError("Fit", "every target value is missing")
	}
	if dropped := train.NumRows() - len(keep); dropped > 0 {
		m.logger.Warn("Dropping rows with missing target",
			log.TargetKey, target, log.RowsKey, dropped)
		train = train.RowSubset(keep)
		targetCol, _ = train.Col(target)
	}

	x, err := train.Matrix(features)
	if err != nil {
		return nil, err
	}
	labels := make([]int, train.NumRows())
	for i := range labels {
		labels[i] = int(targetCol.Data[i])
	}

	m.target = target
	m.features = meta
	m.levels = levels
	m.classes = targetCol.Levels()
	m.history = nil
	m.rawImp = make([]float64, len(features))

	td := &trainData{x: x, labels: labels, meta: meta}

	if valid != nil && valid.NumRows() > 0 {
		td.validX, td.validLabels, err = m.packScoringFrame(valid)
		if err != nil {
			return nil, errors.NewModelError("Fit", "validation frame", err)
		}
	}
	return td, nil
}

// packScoringFrame packs a labeled frame through the training schema,
// dropping rows with a missing target.
func (m *modelBase) packScoringFrame(f *frame.Frame) (*mat.Dense, []int, error) {
	targetCol, err := f.Col(m.target)
	if err != nil {
		return nil, nil, err
	}
	if targetCol.Type != frame.Enum {
		return nil, nil, errors.NewSchemaError(m.target, "target must be a categorical column")
	}

	keep := make([]int, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		if !targetCol.IsNA(i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, nil, errors.NewValueError("score", "every target value is missing")
	}
	if len(keep) < f.NumRows() {
		f = f.RowSubset(keep)
		targetCol, _ = f.Col(m.target)
	}

	x, err := m.featureMatrix(f)
	if err != nil {
		return nil, nil, err
	}

	classIndex := make(map[string]int, len(m.classes))
	for i, lvl := range m.classes {
		classIndex[lvl] = i
	}
	labels := make([]int, f.NumRows())
	for i := range labels {
		lvl, err := targetCol.LevelAt(i)
		if err != nil {
			return nil, nil, err
		}
		cls, ok := classIndex[lvl]
		if !ok {
			return nil, nil, errors.NewSchemaError(m.target, "level "+lvl+" not seen during training")
		}
		labels[i] = cls
	}
	return x, labels, nil
}

// featureMatrix packs a frame into the training feature layout,
// remapping enum cells through the training dictionaries. Unseen
// levels and missing cells become NaN.
func (m *modelBase) featureMatrix(f *frame.Frame) (*mat.Dense, error) {
	if f == nil || f.NumRows() == 0 {
		return nil, errors.WithStack(errors.ErrEmptyFrame)
	}

	x := mat.NewDense(f.NumRows(), len(m.features), nil)
	for j, fm := range m.features {
		c, err := f.Col(fm.Name)
		if err != nil {
			return nil, errors.NewSchemaError(fm.Name, "column missing from frame")
		}
		if fm.Enum {
			if c.Type != frame.Enum {
				return nil, errors.NewSchemaError(fm.Name, "expected a categorical column")
			}
			index := make(map[string]int, len(m.levels[j]))
			for i, lvl := range m.levels[j] {
				index[lvl] = i
			}
			for i := 0; i < f.NumRows(); i++ {
				if c.IsNA(i) {
					x.Set(i, j, math.NaN())
					continue
				}
				lvl, err := c.LevelAt(i)
				if err != nil {
					return nil, err
				}
				idx, ok := index[lvl]
				if !ok {
					x.Set(i, j, math.NaN())
					continue
				}
				x.Set(i, j, float64(idx))
			}
			continue
		}
		if c.Type != frame.Numeric {
			return nil, errors.NewSchemaError(fm.Name, "expected a numeric column")
		}
		for i := 0; i < f.NumRows(); i++ {
			x.Set(i, j, c.Data[i])
		}
	}
	return x, nil
}

// predictionFrame turns a row-per-sample probability matrix into the
// prediction output frame: an enum "predict" column holding the argmax
// label, then one probability column per target level.
func (m *modelBase) predictionFrame(probs *mat.Dense) (*frame.Frame, error) {
	n, k := probs.Dims()
	if k != len(m.classes) {
		return nil, errors.NewDimensionError("Predict", len(m.classes), k, 1)
	}

	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		best := 0
		for c := 1; c < k; c++ {
			if probs.At(i, c) > probs.At(i, best) {
				best = c
			}
		}
		labels[i] = float64(best)
	}

	cols := make([]*frame.Column, 0, k+1)
	cols = append(cols, frame.NewEnumColumnWithLevels("predict", labels, m.classes))
	for c := 0; c < k; c++ {
		data := make([]float64, n)
		for i := 0; i < n; i++ {
			data[i] = probs.At(i, c)
		}
		cols = append(cols, frame.NewNumericColumn(m.classes[c], data))
	}
	return frame.New(cols...)
}

// addTreeGains accumulates each split's gain onto its feature.
func (m *modelBase) addTreeGains(t *Tree) {
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !n.IsLeaf() && n.Gain > 0 {
			m.rawImp[n.SplitFeature] += n.Gain
		}
	}
}

// VarImp returns the variable importance table, largest first.
func (m *modelBase) VarImp() ([]VarImpEntry, error) {
	if !m.fitted {
		return nil, errors.NewNotFittedError(m.modelID, "VarImp")
	}

	entries := make([]VarImpEntry, len(m.features))
	total, maxImp := 0.0, 0.0
	for j, fm := range m.features {
		entries[j] = VarImpEntry{Variable: fm.Name, Relative: m.rawImp[j]}
		total += m.rawImp[j]
		if m.rawImp[j] > maxImp {
			maxImp = m.rawImp[j]
		}
	}
	for j := range entries {
		if maxImp > 0 {
			entries[j].Scaled = entries[j].Relative / maxImp
		}
		if total > 0 {
			entries[j].Percentage = entries[j].Relative / total
		}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Relative > entries[b].Relative
	})
	return entries, nil
}

// parallelize runs a chunked loop on the engine when one is attached,
// sequentially otherwise.
func (m *modelBase) parallelize(items int, fn func(start, end int)) error {
	if m.eng != nil {
		return m.eng.Parallelize(items, fn)
	}
	fn(0, items)
	return nil
}

// recordScore appends one scoring event and logs it.
func (m *modelBase) recordScore(iteration, trees int, trainMetric, validMetric float64) {
	m.history = append(m.history, ScoringEvent{
		Iteration:   iteration,
		Trees:       trees,
		TrainMetric: trainMetric,
		ValidMetric: validMetric,
		Timestamp:   time.Now(),
	})
	m.logger.Debug("Scored iteration",
		log.ModelIDKey, m.modelID,
		log.IterationKey, iteration,
		log.TreesKey, trees,
		log.TrainMetricKey, trainMetric,
		log.ValidMetricKey, validMetric,
	)
}

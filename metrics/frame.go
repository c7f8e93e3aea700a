package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/grove/frame"
	"github.com/YuminosukeSato/grove/pkg/errors"
)

// PredictColumn は予測フレームのラベル列名
const PredictColumn = "predict"

// FrameAccuracy は予測フレームのラベル列と実測フレームのターゲット列を
// 突き合わせて一致率を計算する。ターゲットが欠損している行は除外する。
func FrameAccuracy(preds, actual *frame.Frame, target string) (float64, error) {
	predCol, actualCol, err := alignFrames(preds, actual, target)
	if err != nil {
		return 0, err
	}

	correct, compared := 0, 0
	for i := 0; i < actualCol.Len(); i++ {
		if actualCol.IsNA(i) {
			continue
		}
		want, err := actualCol.LevelAt(i)
		if err != nil {
			return 0, err
		}
		got, err := predCol.LevelAt(i)
		if err != nil {
			return 0, err
		}
		if got == want {
			correct++
		}
		compared++
	}
	if compared == 0 {
		return 0, errors.NewValueError("FrameAccuracy", "no rows with a target value")
	}
	return float64(correct) / float64(compared), nil
}

// FrameConfusionMatrix は予測フレームと実測フレームから混同行列を計算する。
// 行・列の並びは実測ターゲットのレベル辞書に従い、levelsとして返す。
func FrameConfusionMatrix(preds, actual *frame.Frame, target string) ([][]int, []string, error) {
	predCol, actualCol, err := alignFrames(preds, actual, target)
	if err != nil {
		return nil, nil, err
	}

	levels := actualCol.Levels()
	index := make(map[string]int, len(levels))
	for i, lvl := range levels {
		index[lvl] = i
	}

	cm := make([][]int, len(levels))
	for i := range cm {
		cm[i] = make([]int, len(levels))
	}
	for i := 0; i < actualCol.Len(); i++ {
		if actualCol.IsNA(i) {
			continue
		}
		want, err := actualCol.LevelAt(i)
		if err != nil {
			return nil, nil, err
		}
		got, err := predCol.LevelAt(i)
		if err != nil {
			return nil, nil, err
		}
		t := index[want]
		p, ok := index[got]
		if !ok {
			return nil, nil, errors.NewSchemaError(target, "predicted level "+got+" not in target dictionary")
		}
		cm[t][p]++
	}
	return cm, levels, nil
}

// FrameLogLoss は予測フレームのクラス確率列から交差エントロピーを計算する。
// 確率列はレベル名と同名の数値列として存在している必要がある。
func FrameLogLoss(preds, actual *frame.Frame, target string) (float64, error) {
	_, actualCol, err := alignFrames(preds, actual, target)
	if err != nil {
		return 0, err
	}

	const eps = 1e-15
	sum, compared := 0.0, 0
	for i := 0; i < actualCol.Len(); i++ {
		if actualCol.IsNA(i) {
			continue
		}
		want, err := actualCol.LevelAt(i)
		if err != nil {
			return 0, err
		}
		probCol, err := preds.Col(want)
		if err != nil {
			return 0, errors.NewSchemaError(want, "probability column missing from prediction frame")
		}
		p := probCol.Data[i]
		if p < eps {
			p = eps
		}
		if p > 1-eps {
			p = 1 - eps
		}
		sum -= math.Log(p)
		compared++
	}
	if compared == 0 {
		return 0, errors.NewValueError("FrameLogLoss", "no rows with a target value")
	}
	return sum / float64(compared), nil
}

// FrameHitRatioTable は予測フレームのクラス確率列からtop-k精度の表を計算する。
func FrameHitRatioTable(preds, actual *frame.Frame, target string) ([]float64, error) {
	predCol, actualCol, err := alignFrames(preds, actual, target)
	if err != nil {
		return nil, err
	}

	levels := predCol.Levels()
	probCols := make([]*frame.Column, len(levels))
	for c, lvl := range levels {
		col, err := preds.Col(lvl)
		if err != nil {
			return nil, errors.NewSchemaError(lvl, "probability column missing from prediction frame")
		}
		probCols[c] = col
	}

	k := len(levels)
	hits := make([]int, k)
	compared := 0
	order := make([]int, k)
	for i := 0; i < actualCol.Len(); i++ {
		if actualCol.IsNA(i) {
			continue
		}
		want, err := actualCol.LevelAt(i)
		if err != nil {
			return nil, err
		}
		for j := range order {
			order[j] = j
		}
		row := i
		sort.SliceStable(order, func(a, b int) bool {
			return probCols[order[a]].Data[row] > probCols[order[b]].Data[row]
		})
		for rank, c := range order {
			if levels[c] == want {
				for r := rank; r < k; r++ {
					hits[r]++
				}
				break
			}
		}
		compared++
	}
	if compared == 0 {
		return nil, errors.NewValueError("FrameHitRatioTable", "no rows with a target value")
	}

	table := make([]float64, k)
	for r := range hits {
		table[r] = float64(hits[r]) / float64(compared)
	}
	return table, nil
}

// alignFrames は予測フレームと実測フレームの行数を検証し、
// ラベル列とターゲット列を取り出す
func alignFrames(preds, actual *frame.Frame, target string) (*frame.Column, *frame.Column, error) {
	if preds == nil || actual == nil {
		return nil, nil, errors.WithStack(errors.ErrEmptyFrame)
	}
	if preds.NumRows() != actual.NumRows() {
		return nil, nil, errors.NewDimensionError("frame metrics", actual.NumRows(), preds.NumRows(), 0)
	}
	predCol, err := preds.Col(PredictColumn)
	if err != nil {
		return nil, nil, err
	}
	actualCol, err := actual.Col(target)
	if err != nil {
		return nil, nil, err
	}
	if actualCol.Type != frame.Enum {
		return nil, nil, errors.NewSchemaError(target, "target must be a categorical column")
	}
	return predCol, actualCol, nil
}

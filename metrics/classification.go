package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/grove/pkg/errors"
)

// Accuracy は正解ラベルと予測ラベルの一致率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// LogLoss は多クラス交差エントロピーを計算する。
// yTrueはクラスインデックス、probsは行ごとのクラス確率（n×K行列）。
// 確率は数値安定性のため[eps, 1-eps]にクリップされる。
func LogLoss(yTrue *mat.VecDense, probs *mat.Dense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("LogLoss", "empty vector")
	}
	rows, k := probs.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("LogLoss", n, rows, 0)
	}

	const eps = 1e-15
	sum := 0.0
	for i := 0; i < n; i++ {
		cls := int(yTrue.AtVec(i))
		if cls < 0 || cls >= k {
			return 0, errors.NewValueError("LogLoss", "class index out of range")
		}
		p := probs.At(i, cls)
		if p < eps {
			p = eps
		}
		if p > 1-eps {
			p = 1 - eps
		}
		sum -= math.Log(p)
	}
	return sum / float64(n), nil
}

// ConfusionMatrix は混同行列を計算する。
// 戻り値のcm[i][j]は、正解クラスiが予測クラスjと判定された件数。
func ConfusionMatrix(yTrue, yPred *mat.VecDense, nClasses int) ([][]int, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}
	if nClasses < 2 {
		return nil, errors.NewValueError("ConfusionMatrix", "need at least 2 classes")
	}

	cm := make([][]int, nClasses)
	for i := range cm {
		cm[i] = make([]int, nClasses)
	}
	for i := 0; i < n; i++ {
		t := int(yTrue.AtVec(i))
		p := int(yPred.AtVec(i))
		if t < 0 || t >= nClasses || p < 0 || p >= nClasses {
			return nil, errors.NewValueError("ConfusionMatrix", "class index out of range")
		}
		cm[t][p]++
	}
	return cm, nil
}

// AUC は二値分類のROC曲線下面積を計算する。
// yTrueは0/1ラベル、yScoreは陽性クラスのスコア。
// 片方のクラスしか存在しない場合は警告を発して0.5を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}
	if yScore.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yScore.Len(), 0)
	}

	nPos, nNeg := 0, 0
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return 0, errors.NewValueError("AUC", "labels must be 0 or 1")
		}
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present", 0.5))
		return 0.5, nil
	}

	// スコア昇順のランクから順位和を計算（同順位は平均ランク）
	type scored struct {
		score float64
		label float64
	}
	items := make([]scored, n)
	for i := 0; i < n; i++ {
		items[i] = scored{score: yScore.AtVec(i), label: yTrue.AtVec(i)}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].score < items[b].score })

	rankSum := 0.0
	i := 0
	for i < n {
		j := i
		for j < n && items[j].score == items[i].score {
			j++
		}
		// [i, j) は同一スコア。平均ランクを割り当てる
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			if items[k].label == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}

	auc := (rankSum - float64(nPos)*float64(nPos+1)/2.0) / (float64(nPos) * float64(nNeg))
	return auc, nil
}

// HitRatioTable はtop-k精度の表を計算する。
// 戻り値のk番目の要素は、正解クラスが予測確率上位k+1位以内に入った割合。
func HitRatioTable(yTrue *mat.VecDense, probs *mat.Dense, maxK int) ([]float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("HitRatioTable", "empty vector")
	}
	rows, k := probs.Dims()
	if rows != n {
		return nil, errors.NewDimensionError("HitRatioTable", n, rows, 0)
	}
	if maxK <= 0 || maxK > k {
		maxK = k
	}

	hits := make([]int, maxK)
	order := make([]int, k)
	for i := 0; i < n; i++ {
		cls := int(yTrue.AtVec(i))
		if cls < 0 || cls >= k {
			return nil, errors.NewValueError("HitRatioTable", "class index out of range")
		}
		for j := range order {
			order[j] = j
		}
		row := i
		sort.SliceStable(order, func(a, b int) bool {
			return probs.At(row, order[a]) > probs.At(row, order[b])
		})
		for rank, c := range order[:maxK] {
			if c == cls {
				for r := rank; r < maxK; r++ {
					hits[r]++
				}
				break
			}
		}
	}

	table := make([]float64, maxK)
	for r := range hits {
		table[r] = float64(hits[r]) / float64(n)
	}
	return table, nil
}

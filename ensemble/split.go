package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/grove/frame"
)

const hessEpsilon = 1e-10

// splitInfo describes the best split found for a node.
type splitInfo struct {
	feature    int
	kind       NodeType
	threshold  float64
	categories []int
	gain       float64
}

func noSplit() splitInfo {
	return splitInfo{feature: -1, gain: math.Inf(-1)}
}

// partitionRows routes the node rows through a split decision.
// Missing values go left, mirroring Tree prediction.
func partitionRows(x *mat.Dense, rows []int, s splitInfo) (left, right []int) {
	inLeft := func(v float64) bool {
		if math.IsNaN(v) {
			return true
		}
		if s.kind == NumericalNode {
			return v <= s.threshold
		}
		level := int(v)
		for _, cat := range s.categories {
			if level == cat {
				return true
			}
		}
		return false
	}
	for _, r := range rows {
		if inLeft(x.At(r, s.feature)) {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// binIndex maps a value into one of nbins equal-width bins over
// [minV, maxV]. Missing values land in bin 0.
func binIndex(v, minV, width float64, nbins int) int {
	if math.IsNaN(v) || width == 0 {
		return 0
	}
	b := int((v - minV) / width)
	if b < 0 {
		b = 0
	}
	if b >= nbins {
		b = nbins - 1
	}
	return b
}

func featureRange(x *mat.Dense, rows []int, feature int) (minV, maxV float64, ok bool) {
	minV, maxV = math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		v := x.At(r, feature)
		if math.IsNaN(v) {
			continue
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV, minV < maxV
}

// ---------------------------------------------------------------------------
// Gini split finding (Random Forest)
// ---------------------------------------------------------------------------

func giniImpurity(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		sum += p * p
	}
	return 1 - sum
}

// findBestGiniSplit searches the candidate features for the split with
// the largest impurity decrease. Numeric features are scanned over
// nbins equal-width histogram bins; categorical features are scanned
// as level subsets after ordering levels by the parent majority-class
// rate, which reduces the subset search to a single boundary scan.
func findBestGiniSplit(x *mat.Dense, rows []int, features []int, meta []frame.FeatureMeta,
	labels []int, nClasses, nbins, minRows int, minImp float64) splitInfo {

	parentCounts := make([]int, nClasses)
	for _, r := range rows {
		parentCounts[labels[r]]++
	}
	parentN := len(rows)
	parentImp := float64(parentN) * giniImpurity(parentCounts, parentN)

	majority := 0
	for c := range parentCounts {
		if parentCounts[c] > parentCounts[majority] {
			majority = c
		}
	}

	best := noSplit()
	for _, j := range features {
		var s splitInfo
		if meta[j].Enum {
			s = giniCategorical(x, rows, j, meta[j].NLevels, labels, nClasses, minRows, parentCounts, parentImp, majority)
		} else {
			s = giniNumeric(x, rows, j, labels, nClasses, nbins, minRows, parentCounts, parentImp)
		}
		if s.gain > best.gain {
			best = s
		}
	}

	// Require a minimum per-row impurity improvement.
	if best.feature >= 0 && best.gain/float64(parentN) < minImp {
		return noSplit()
	}
	return best
}

func giniNumeric(x *mat.Dense, rows []int, feature int, labels []int,
	nClasses, nbins, minRows int, parentCounts []int, parentImp float64) splitInfo {

	minV, maxV, ok := featureRange(x, rows, feature)
	if !ok {
		return noSplit()
	}
	width := (maxV - minV) / float64(nbins)

	counts := make([][]int, nbins)
	for b := range counts {
		counts[b] = make([]int, nClasses)
	}
	for _, r := range rows {
		b := binIndex(x.At(r, feature), minV, width, nbins)
		counts[b][labels[r]]++
	}

	best := noSplit()
	leftCounts := make([]int, nClasses)
	rightCounts := make([]int, nClasses)
	leftN := 0
	for b := 0; b < nbins-1; b++ {
		for c := 0; c < nClasses; c++ {
			leftCounts[c] += counts[b][c]
			leftN += counts[b][c]
		}
		rightN := len(rows) - leftN
		if leftN < minRows || rightN < minRows {
			continue
		}

		for c := 0; c < nClasses; c++ {
			rightCounts[c] = parentCounts[c] - leftCounts[c]
		}

		gain := parentImp -
			float64(leftN)*giniImpurity(leftCounts, leftN) -
			float64(rightN)*giniImpurity(rightCounts, rightN)
		if gain > best.gain {
			best = splitInfo{
				feature:   feature,
				kind:      NumericalNode,
				threshold: minV + width*float64(b+1),
				gain:      gain,
			}
		}
	}
	return best
}

func giniCategorical(x *mat.Dense, rows []int, feature, nLevels int, labels []int,
	nClasses, minRows int, parentCounts []int, parentImp float64, majority int) splitInfo {

	counts := make([][]int, nLevels)
	totals := make([]int, nLevels)
	for lvl := range counts {
		counts[lvl] = make([]int, nClasses)
	}
	// Missing values always ride the left branch, so they seed the
	// left-side statistics of every candidate subset.
	naCounts := make([]int, nClasses)
	naN := 0
	for _, r := range rows {
		v := x.At(r, feature)
		if math.IsNaN(v) {
			naCounts[labels[r]]++
			naN++
			continue
		}
		lvl := int(v)
		counts[lvl][labels[r]]++
		totals[lvl]++
	}

	// Order present levels by the parent-majority-class rate so a
	// single boundary scan visits the informative subsets.
	present := make([]int, 0, nLevels)
	for lvl := 0; lvl < nLevels; lvl++ {
		if totals[lvl] > 0 {
			present = append(present, lvl)
		}
	}
	if len(present) < 2 {
		return noSplit()
	}
	sort.Slice(present, func(a, b int) bool {
		ra := float64(counts[present[a]][majority]) / float64(totals[present[a]])
		rb := float64(counts[present[b]][majority]) / float64(totals[present[b]])
		return ra > rb
	})

	best := noSplit()
	leftCounts := make([]int, nClasses)
	copy(leftCounts, naCounts)
	rightCounts := make([]int, nClasses)
	leftN := naN
	for i := 0; i < len(present)-1; i++ {
		lvl := present[i]
		for c := 0; c < nClasses; c++ {
			leftCounts[c] += counts[lvl][c]
		}
		leftN += totals[lvl]
		rightN := len(rows) - leftN
		if leftN < minRows || rightN < minRows {
			continue
		}

		for c := 0; c < nClasses; c++ {
			rightCounts[c] = parentCounts[c] - leftCounts[c]
		}

		gain := parentImp -
			float64(leftN)*giniImpurity(leftCounts, leftN) -
			float64(rightN)*giniImpurity(rightCounts, rightN)
		if gain > best.gain {
			categories := make([]int, i+1)
			copy(categories, present[:i+1])
			best = splitInfo{
				feature:    feature,
				kind:       CategoricalNode,
				categories: categories,
				gain:       gain,
			}
		}
	}
	return best
}

// ---------------------------------------------------------------------------
// Gradient split finding (GBM)
// ---------------------------------------------------------------------------

func gradScore(sumG, sumH float64) float64 {
	return (sumG * sumG) / (sumH + hessEpsilon)
}

// findBestGradSplit searches the candidate features for the split with
// the largest second-order gain, 0.5*(GL²/HL + GR²/HR - G²/H), over
// histogram bins.
func findBestGradSplit(x *mat.Dense, rows []int, features []int, meta []frame.FeatureMeta,
	grads, hess []float64, nbins, minRows int, minImp float64) splitInfo {

	totalG, totalH := 0.0, 0.0
	for _, r := range rows {
		totalG += grads[r]
		totalH += hess[r]
	}
	parentScore := gradScore(totalG, totalH)

	best := noSplit()
	for _, j := range features {
		var s splitInfo
		if meta[j].Enum {
			s = gradCategorical(x, rows, j, meta[j].NLevels, grads, hess, minRows, totalG, totalH, parentScore)
		} else {
			s = gradNumeric(x, rows, j, grads, hess, nbins, minRows, totalG, totalH, parentScore)
		}
		if s.gain > best.gain {
			best = s
		}
	}

	if best.feature >= 0 && best.gain < minImp {
		return noSplit()
	}
	return best
}

func gradNumeric(x *mat.Dense, rows []int, feature int, grads, hess []float64,
	nbins, minRows int, totalG, totalH, parentScore float64) splitInfo {

	minV, maxV, ok := featureRange(x, rows, feature)
	if !ok {
		return noSplit()
	}
	width := (maxV - minV) / float64(nbins)

	binG := make([]float64, nbins)
	binH := make([]float64, nbins)
	binN := make([]int, nbins)
	for _, r := range rows {
		b := binIndex(x.At(r, feature), minV, width, nbins)
		binG[b] += grads[r]
		binH[b] += hess[r]
		binN[b]++
	}

	best := noSplit()
	leftG, leftH := 0.0, 0.0
	leftN := 0
	for b := 0; b < nbins-1; b++ {
		leftG += binG[b]
		leftH += binH[b]
		leftN += binN[b]
		rightN := len(rows) - leftN
		if leftN < minRows || rightN < minRows {
			continue
		}

		gain := 0.5 * (gradScore(leftG, leftH) + gradScore(totalG-leftG, totalH-leftH) - parentScore)
		if gain > best.gain {
			best = splitInfo{
				feature:   feature,
				kind:      NumericalNode,
				threshold: minV + width*float64(b+1),
				gain:      gain,
			}
		}
	}
	return best
}

func gradCategorical(x *mat.Dense, rows []int, feature, nLevels int, grads, hess []float64,
	minRows int, totalG, totalH, parentScore float64) splitInfo {

	levelG := make([]float64, nLevels)
	levelH := make([]float64, nLevels)
	levelN := make([]int, nLevels)
	// Missing values always ride the left branch, so they seed the
	// left-side statistics of every candidate subset.
	naG, naH := 0.0, 0.0
	naN := 0
	for _, r := range rows {
		v := x.At(r, feature)
		if math.IsNaN(v) {
			naG += grads[r]
			naH += hess[r]
			naN++
			continue
		}
		lvl := int(v)
		levelG[lvl] += grads[r]
		levelH[lvl] += hess[r]
		levelN[lvl]++
	}

	present := make([]int, 0, nLevels)
	for lvl := 0; lvl < nLevels; lvl++ {
		if levelN[lvl] > 0 {
			present = append(present, lvl)
		}
	}
	if len(present) < 2 {
		return noSplit()
	}

	// Sorting levels by their average gradient makes the prefix scan
	// optimal for second-order gain, the same trick LightGBM uses.
	sort.Slice(present, func(a, b int) bool {
		ra := levelG[present[a]] / (levelH[present[a]] + hessEpsilon)
		rb := levelG[present[b]] / (levelH[present[b]] + hessEpsilon)
		return ra < rb
	})

	best := noSplit()
	leftG, leftH := naG, naH
	leftN := naN
	for i := 0; i < len(present)-1; i++ {
		lvl := present[i]
		leftG += levelG[lvl]
		leftH += levelH[lvl]
		leftN += levelN[lvl]
		rightN := len(rows) - leftN
		if leftN < minRows || rightN < minRows {
			continue
		}

		gain := 0.5 * (gradScore(leftG, leftH) + gradScore(totalG-leftG, totalH-leftH) - parentScore)
		if gain > best.gain {
			categories := make([]int, i+1)
			copy(categories, present[:i+1])
			best = splitInfo{
				feature:    feature,
				kind:       CategoricalNode,
				categories: categories,
				gain:       gain,
			}
		}
	}
	return best
}

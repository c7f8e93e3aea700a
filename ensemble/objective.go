package ensemble

import "math"

// objective turns boosted scores into probabilities and gradients.
// Binomial targets train one tree per iteration on the log-odds of the
// positive class; multinomial targets train one tree per class on
// softmax scores.
type objective interface {
	// columns is the number of score columns, one tree each per iteration.
	columns() int
	// baseScore is the initial score of column col before any tree.
	baseScore(labels []int, col int) float64
	// probabilities fills probs (n x nClasses) from scores (n x columns).
	probabilities(scores, probs *scoreMatrix)
	// gradients fills grads and hess for column col from the current
	// class probabilities.
	gradients(labels []int, probs *scoreMatrix, col int, grads, hess []float64)
}

// scoreMatrix is a minimal row-major matrix for the boosting state.
// Scores and probabilities are touched row by row in tight loops, so a
// flat slice beats the general-purpose dense matrix here.
type scoreMatrix struct {
	rows, cols int
	data       []float64
}

func newScoreMatrix(rows, cols int) *scoreMatrix {
	return &scoreMatrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m *scoreMatrix) at(i, j int) float64     { return m.data[i*m.cols+j] }
func (m *scoreMatrix) set(i, j int, v float64) { m.data[i*m.cols+j] = v }
func (m *scoreMatrix) add(i, j int, v float64) { m.data[i*m.cols+j] += v }
func (m *scoreMatrix) row(i int) []float64     { return m.data[i*m.cols : (i+1)*m.cols] }

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// binomialObjective boosts the log-odds of class 1.
type binomialObjective struct{}

func (binomialObjective) columns() int { return 1 }

func (binomialObjective) baseScore(labels []int, _ int) float64 {
	pos := 0
	for _, y := range labels {
		if y == 1 {
			pos++
		}
	}
	p := float64(pos) / float64(len(labels))
	const eps = 1e-6
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	return math.Log(p / (1 - p))
}

func (binomialObjective) probabilities(scores, probs *scoreMatrix) {
	for i := 0; i < scores.rows; i++ {
		p1 := sigmoid(scores.at(i, 0))
		probs.set(i, 0, 1-p1)
		probs.set(i, 1, p1)
	}
}

func (binomialObjective) gradients(labels []int, probs *scoreMatrix, _ int, grads, hess []float64) {
	for i := range labels {
		p1 := probs.at(i, 1)
		y := 0.0
		if labels[i] == 1 {
			y = 1.0
		}
		grads[i] = p1 - y
		hess[i] = p1 * (1 - p1)
	}
}

// multinomialObjective boosts one softmax score column per class.
type multinomialObjective struct {
	nClasses int
}

func (o multinomialObjective) columns() int { return o.nClasses }

func (multinomialObjective) baseScore([]int, int) float64 { return 0 }

func (o multinomialObjective) probabilities(scores, probs *scoreMatrix) {
	for i := 0; i < scores.rows; i++ {
		row := scores.row(i)
		maxS := row[0]
		for _, s := range row[1:] {
			if s > maxS {
				maxS = s
			}
		}
		sum := 0.0
		out := probs.row(i)
		for c, s := range row {
			e := math.Exp(s - maxS)
			out[c] = e
			sum += e
		}
		for c := range out {
			out[c] /= sum
		}
	}
}

func (o multinomialObjective) gradients(labels []int, probs *scoreMatrix, col int, grads, hess []float64) {
	for i := range labels {
		p := probs.at(i, col)
		y := 0.0
		if labels[i] == col {
			y = 1.0
		}
		grads[i] = p - y
		hess[i] = p * (1 - p)
	}
}

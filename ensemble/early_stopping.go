package ensemble

import "math"

// scoreKeeper implements rolling-window convergence checking. Each
// scoring round appends a metric value; once a full window of scores is
// available the keeper compares the moving average of the last
// `rounds` scores against the best moving average seen so far. Training
// stops after `rounds` consecutive windows without a relative
// improvement of at least `tolerance`.
type scoreKeeper struct {
	metric    StoppingMetric
	rounds    int
	tolerance float64

	scores    []float64
	bestMA    float64
	bestRound int
	sinceBest int
	improved  bool
}

func newScoreKeeper(metric StoppingMetric, rounds int, tolerance float64) *scoreKeeper {
	best := math.Inf(1)
	if !metric.minimized() {
		best = math.Inf(-1)
	}
	return &scoreKeeper{
		metric:    metric,
		rounds:    rounds,
		tolerance: tolerance,
		bestMA:    best,
		bestRound: -1,
	}
}

// add records one scoring round and reports whether training should
// stop. Rounds are numbered from zero in add order.
func (k *scoreKeeper) add(score float64) (stop bool) {
	k.scores = append(k.scores, score)
	if len(k.scores) < k.rounds {
		return false
	}

	window := k.scores[len(k.scores)-k.rounds:]
	sum := 0.0
	for _, s := range window {
		sum += s
	}
	ma := sum / float64(k.rounds)

	// The first full window seeds the baseline; only later windows
	// count as improvements.
	if math.IsInf(k.bestMA, 0) {
		k.bestMA = ma
		k.bestRound = len(k.scores) - 1
		return false
	}

	if k.improves(ma) {
		k.bestMA = ma
		k.bestRound = len(k.scores) - 1
		k.sinceBest = 0
		k.improved = true
		return false
	}
	k.sinceBest++
	return k.sinceBest >= k.rounds
}

func (k *scoreKeeper) improves(ma float64) bool {
	denom := math.Abs(k.bestMA)
	if denom == 0 {
		denom = 1
	}
	if k.metric.minimized() {
		return (k.bestMA-ma)/denom > k.tolerance
	}
	return (ma-k.bestMA)/denom > k.tolerance
}

// best returns the zero-based round index of the best moving average,
// or -1 if no full window has been scored yet.
func (k *scoreKeeper) best() int { return k.bestRound }

// everImproved reports whether any window beat the first one.
func (k *scoreKeeper) everImproved() bool { return k.improved }

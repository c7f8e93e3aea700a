package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// treeBuilder grows one decision tree depth-first into a flat node
// array. The split search and leaf statistics are injected so the same
// grower serves both the gini and the gradient trees.
type treeBuilder struct {
	x        *mat.Dense
	maxDepth int
	minRows  int
	mtries   int
	features []int
	rng      *rand.Rand

	find func(rows, features []int) splitInfo
	leaf func(rows []int) (value float64, dist []float64)

	nodes []Node
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	return Tree{Nodes: append([]Node(nil), b.nodes...)}
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		NodeID:     id,
		LeftChild:  -1,
		RightChild: -1,
		Count:      len(rows),
	})

	if depth >= b.maxDepth || len(rows) < 2*b.minRows {
		return b.sealLeaf(id, rows)
	}

	s := b.find(rows, b.sampleFeatures())
	if s.feature < 0 {
		return b.sealLeaf(id, rows)
	}
	left, right := partitionRows(b.x, rows, s)
	if len(left) < b.minRows || len(right) < b.minRows {
		return b.sealLeaf(id, rows)
	}

	b.nodes[id].NodeType = s.kind
	b.nodes[id].SplitFeature = s.feature
	b.nodes[id].Threshold = s.threshold
	b.nodes[id].Categories = s.categories
	b.nodes[id].Gain = s.gain

	leftID := b.grow(left, depth+1)
	rightID := b.grow(right, depth+1)
	b.nodes[id].LeftChild = leftID
	b.nodes[id].RightChild = rightID
	return id
}

func (b *treeBuilder) sealLeaf(id int, rows []int) int {
	value, dist := b.leaf(rows)
	b.nodes[id].NodeType = LeafNode
	b.nodes[id].LeafValue = value
	b.nodes[id].LeafDist = dist
	return id
}

// sampleFeatures draws mtries features without replacement from the
// tree's feature pool by a partial Fisher-Yates shuffle.
func (b *treeBuilder) sampleFeatures() []int {
	if b.mtries <= 0 || b.mtries >= len(b.features) {
		return b.features
	}
	pool := append([]int(nil), b.features...)
	for i := 0; i < b.mtries; i++ {
		j := i + b.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:b.mtries]
}

// sampleRows draws rate*n row indices without replacement.
func sampleRows(n int, rate float64, rng *rand.Rand) []int {
	take := int(rate * float64(n))
	if take < 1 {
		take = 1
	}
	if take >= n {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	perm := rng.Perm(n)
	return perm[:take]
}

// sampleColumns draws rate*len(all) feature indices without replacement,
// keeping them in ascending order so histograms scan deterministically.
func sampleColumns(all int, rate float64, rng *rand.Rand) []int {
	features := make([]int, all)
	for j := range features {
		features[j] = j
	}
	if rate >= 1 {
		return features
	}
	take := int(rate * float64(all))
	if take < 1 {
		take = 1
	}
	rng.Shuffle(all, func(i, j int) {
		features[i], features[j] = features[j], features[i]
	})
	picked := features[:take]
	for i := 1; i < len(picked); i++ {
		for j := i; j > 0 && picked[j] < picked[j-1]; j-- {
			picked[j], picked[j-1] = picked[j-1], picked[j]
		}
	}
	return picked
}

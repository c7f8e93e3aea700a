// Package ensemble implements grove's tree ensembles: bagged Random
// Forest and boosted GBM classifiers sharing one tree representation,
// histogram split finding, rolling-window early stopping and
// split-gain variable importances.
package ensemble

import "math"

// NodeType represents the type of a tree node.
type NodeType int

const (
	// LeafNode is a terminal node.
	LeafNode NodeType = iota
	// NumericalNode splits on value <= threshold.
	NumericalNode
	// CategoricalNode splits on membership in a level subset.
	CategoricalNode
)

// Node is a single node in a decision tree, stored in a flat array
// with child links by index.
type Node struct {
	NodeID     int
	LeftChild  int // -1 if leaf
	RightChild int // -1 if leaf
	NodeType   NodeType

	// Split information (for non-leaf nodes)
	SplitFeature int
	Threshold    float64 // numerical splits
	Categories   []int   // level indices routed left on categorical splits
	Gain         float64

	// Leaf information
	LeafValue float64   // boosted score contribution (GBM)
	LeafDist  []float64 // class distribution (Random Forest)
	Count     int       // training rows that reached this node
}

// IsLeaf returns true if the node is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a single decision tree in an ensemble.
type Tree struct {
	Nodes []Node
}

// NumLeaves counts the leaf nodes.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// leaf walks the tree for one sample row and returns its leaf node.
// Missing values are routed to the left child.
func (t *Tree) leaf(row []float64) *Node {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node
		}

		value := row[node.SplitFeature]
		if math.IsNaN(value) {
			nodeID = node.LeftChild
			continue
		}

		switch node.NodeType {
		case NumericalNode:
			if value <= node.Threshold {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
		case CategoricalNode:
			level := int(value)
			routedLeft := false
			for _, cat := range node.Categories {
				if level == cat {
					routedLeft = true
					break
				}
			}
			if routedLeft {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
		default:
			return node
		}
	}
	return &t.Nodes[0]
}

// Predict returns the leaf score for one sample row.
func (t *Tree) Predict(row []float64) float64 {
	return t.leaf(row).LeafValue
}

// PredictDist returns the leaf class distribution for one sample row.
func (t *Tree) PredictDist(row []float64) []float64 {
	return t.leaf(row).LeafDist
}

package ml

import (
	"fmt"
	"math"
	"sort"
)

// DecisionTree is a CART classifier stored as a flat node slice. Splits use
// the median of each feature as the candidate threshold and Gini impurity as
// the criterion. Leaves carry the share of positive labels that reached them.
type DecisionTree struct {
	MaxDepth    int        `json:"max_depth"`
	MinLeafSize int        `json:"min_leaf_size"`
	Nodes       []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	Probability float64 `json:"probability"`
	Samples     int     `json:"samples"`
	IsLeaf      bool    `json:"is_leaf"`
}

func NewDecisionTree(maxDepth, minLeafSize int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if minLeafSize <= 0 {
		minLeafSize = 1
	}
	return &DecisionTree{MaxDepth: maxDepth, MinLeafSize: minLeafSize}
}

func (dt *DecisionTree) Kind() string { return KindDecisionTree }

func (dt *DecisionTree) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return err
	}

	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	dt.Nodes = dt.buildNode(x, y, idx, 0)
	return nil
}

func (dt *DecisionTree) PredictProba(features []float64) (float64, error) {
	if len(dt.Nodes) == 0 {
		return 0, ErrNotTrained
	}
	i := 0
	for {
		node := dt.Nodes[i]
		if node.IsLeaf {
			return node.Probability, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, fmt.Errorf("feature index %d out of range", node.FeatureIdx)
		}
		if features[node.FeatureIdx] <= node.Threshold {
			i = node.LeftChild
		} else {
			i = node.RightChild
		}
		if i < 0 || i >= len(dt.Nodes) {
			return 0, fmt.Errorf("invalid tree state")
		}
	}
}

// Depth returns the depth of the fitted tree; a single leaf has depth 0.
func (dt *DecisionTree) Depth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := dt.Nodes[i]
		if n.IsLeaf {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	return walk(0)
}

// buildNode returns the subtree for the rows in idx with its root first and
// child indices relative to that root.
func (dt *DecisionTree) buildNode(x [][]float64, y []int, idx []int, depth int) []TreeNode {
	positives := 0
	for _, i := range idx {
		positives += y[i]
	}
	leaf := TreeNode{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		Probability: float64(positives) / float64(len(idx)),
		Samples:     len(idx),
		IsLeaf:      true,
	}

	if depth >= dt.MaxDepth || positives == 0 || positives == len(idx) || len(idx) < 2*dt.MinLeafSize {
		return []TreeNode{leaf}
	}

	feature, threshold, ok := dt.findBestSplit(x, y, idx)
	if !ok {
		return []TreeNode{leaf}
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	leftNodes := shift(dt.buildNode(x, y, left, depth+1), 1)
	rightNodes := shift(dt.buildNode(x, y, right, depth+1), 1+len(leftNodes))

	root := leaf
	root.IsLeaf = false
	root.FeatureIdx = feature
	root.Threshold = threshold
	root.LeftChild = 1
	root.RightChild = 1 + len(leftNodes)

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

// shift moves child indices of a subtree placed at offset.
func shift(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if !nodes[i].IsLeaf {
			nodes[i].LeftChild += offset
			nodes[i].RightChild += offset
		}
	}
	return nodes
}

func (dt *DecisionTree) findBestSplit(x [][]float64, y []int, idx []int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	values := make([]float64, len(idx))
	for f := 0; f < len(x[idx[0]]); f++ {
		for k, i := range idx {
			values[k] = x[i][f]
		}
		threshold := median(values)

		var nLeft, posLeft, nRight, posRight int
		for _, i := range idx {
			if x[i][f] <= threshold {
				nLeft++
				posLeft += y[i]
			} else {
				nRight++
				posRight += y[i]
			}
		}
		if nLeft < dt.MinLeafSize || nRight < dt.MinLeafSize {
			continue
		}

		total := float64(nLeft + nRight)
		impurity := float64(nLeft)/total*gini(posLeft, nLeft) + float64(nRight)/total*gini(posRight, nRight)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = f
			bestThreshold = threshold
		}
	}

	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func gini(positives, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(positives) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

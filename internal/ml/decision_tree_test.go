package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTree_Fit(t *testing.T) {
	train := separableDataset(400, 1)
	test := separableDataset(200, 2)

	tree := NewDecisionTree(4, 5)
	x, y := train.XY()
	require.NoError(t, tree.Fit(x, y))

	assert.LessOrEqual(t, tree.Depth(), 4)
	assert.False(t, tree.Nodes[0].IsLeaf)
	assert.Equal(t, 0, tree.Nodes[0].FeatureIdx, "root should split on the informative column")

	tx, ty := test.XY()
	probs, err := predictAll(tree, tx)
	require.NoError(t, err)
	assert.Greater(t, Evaluate(probs, ty, 0.5).Accuracy, 0.85)
}

func TestDecisionTree_LeafProbability(t *testing.T) {
	x := [][]float64{{0}, {0}, {0}, {0}}
	y := []int{1, 1, 1, 0}

	tree := NewDecisionTree(3, 1)
	require.NoError(t, tree.Fit(x, y))

	// no split separates identical rows
	require.Len(t, tree.Nodes, 1)
	p, err := tree.PredictProba([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, 0.75, p)
}

func TestDecisionTree_MinLeafSize(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []int{0, 0, 0, 1, 1, 1}

	tree := NewDecisionTree(5, 4)
	require.NoError(t, tree.Fit(x, y))
	assert.Len(t, tree.Nodes, 1, "a split would leave fewer than 4 rows per side")

	tree = NewDecisionTree(5, 3)
	require.NoError(t, tree.Fit(x, y))
	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, 3.5, tree.Nodes[0].Threshold)

	p, err := tree.PredictProba([]float64{6})
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
}

func TestDecisionTree_FeatureOutOfRange(t *testing.T) {
	tree := NewDecisionTree(2, 1)
	require.NoError(t, tree.Fit([][]float64{{0, 1}, {0, 2}}, []int{0, 1}))

	_, err := tree.PredictProba([]float64{0})
	assert.Error(t, err)
}

func TestLogisticRegression_Fit(t *testing.T) {
	train := separableDataset(400, 3)
	test := separableDataset(200, 4)

	lr := NewLogisticRegression(0.5, 300, 0.001)
	x, y := train.XY()
	require.NoError(t, lr.Fit(x, y))

	assert.Greater(t, lr.Weights[0], 0.0)
	assert.Greater(t, lr.Weights[0], 3*abs(lr.Weights[1]))

	tx, ty := test.XY()
	probs, err := predictAll(lr, tx)
	require.NoError(t, err)
	assert.Greater(t, Evaluate(probs, ty, 0.5).Accuracy, 0.85)

	_, err = lr.PredictProba([]float64{1})
	assert.Error(t, err)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

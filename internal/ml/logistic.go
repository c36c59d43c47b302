package ml

import (
	"fmt"
	"math"
)

// LogisticRegression is fitted with full-batch gradient descent and an L2
// penalty on the weights.
type LogisticRegression struct {
	LearningRate float64   `json:"learning_rate"`
	Epochs       int       `json:"epochs"`
	L2           float64   `json:"l2"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

func NewLogisticRegression(learningRate float64, epochs int, l2 float64) *LogisticRegression {
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if epochs <= 0 {
		epochs = 500
	}
	return &LogisticRegression{LearningRate: learningRate, Epochs: epochs, L2: l2}
}

func (lr *LogisticRegression) Kind() string { return KindLogisticRegression }

func (lr *LogisticRegression) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return err
	}

	n, d := float64(len(x)), len(x[0])
	w := make([]float64, d)
	b := 0.0
	grad := make([]float64, d)

	for epoch := 0; epoch < lr.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradB := 0.0

		for i, row := range x {
			diff := sigmoid(dot(w, row)+b) - float64(y[i])
			for j, v := range row {
				grad[j] += diff * v
			}
			gradB += diff
		}

		for j := range w {
			w[j] -= lr.LearningRate * (grad[j]/n + lr.L2*w[j])
		}
		b -= lr.LearningRate * gradB / n
	}

	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("gradient descent diverged; lower the learning rate")
		}
	}

	lr.Weights = w
	lr.Bias = b
	return nil
}

func (lr *LogisticRegression) PredictProba(features []float64) (float64, error) {
	if len(lr.Weights) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != len(lr.Weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(lr.Weights), len(features))
	}
	return sigmoid(dot(lr.Weights, features) + lr.Bias), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

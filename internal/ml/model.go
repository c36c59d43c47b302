// Package ml provides the models the strategy trainer fits and the model
// manager that fits, evaluates, and sizes bets from them.
//
// Models are plain Go structs whose exported fields are their fitted state,
// so they serialize with encoding/json and are restored with DecodeModel.
package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"aquitania/internal/common"
)

// Model kinds
const (
	KindDecisionTree       = "decision_tree"
	KindLogisticRegression = "logistic_regression"
)

// ErrNotTrained is returned when predicting with a model that has not been fitted.
var ErrNotTrained = errors.New("model not trained")

// Model is a binary classifier that outputs the probability of the positive class.
type Model interface {
	// Kind returns the registry name of the model.
	Kind() string

	// Fit trains the model on a feature matrix and 0/1 labels.
	Fit(x [][]float64, y []int) error

	// PredictProba returns P(y=1 | x).
	PredictProba(x []float64) (float64, error)
}

// ModelSpec describes an untrained model.
type ModelSpec struct {
	Kind         string  `json:"kind" yaml:"kind" default:"decision_tree" validate:"oneof=decision_tree logistic_regression"`
	MaxDepth     int     `json:"max_depth" yaml:"maxDepth" default:"6" validate:"gte=1,lte=32"`
	MinLeafSize  int     `json:"min_leaf_size" yaml:"minLeafSize" default:"5" validate:"gte=1"`
	LearningRate float64 `json:"learning_rate" yaml:"learningRate" default:"0.1" validate:"gt=0"`
	Epochs       int     `json:"epochs" yaml:"epochs" default:"500" validate:"gte=1"`
	L2           float64 `json:"l2" yaml:"l2" validate:"gte=0"`
}

type factory func(ModelSpec) Model

var registry = map[string]factory{
	KindDecisionTree: func(s ModelSpec) Model {
		return NewDecisionTree(s.MaxDepth, s.MinLeafSize)
	},
	KindLogisticRegression: func(s ModelSpec) Model {
		return NewLogisticRegression(s.LearningRate, s.Epochs, s.L2)
	},
}

// Kinds returns the registered model kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewModel applies defaults to spec, validates it, and returns an untrained model.
func NewModel(spec ModelSpec) (Model, error) {
	if err := common.ApplyDefaults(&spec); err != nil {
		return nil, fmt.Errorf("invalid model spec: %w", err)
	}
	f, ok := registry[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown model kind %q", spec.Kind)
	}
	return f(spec), nil
}

// DecodeModel restores a fitted model from its JSON state.
func DecodeModel(kind string, raw json.RawMessage) (Model, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
	m := f(ModelSpec{})
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return m, nil
}

func checkTrainingData(x [][]float64, y []int) error {
	if len(x) == 0 || len(y) == 0 {
		return errors.New("features or labels empty")
	}
	if len(x) != len(y) {
		return fmt.Errorf("features and labels size mismatch: %d vs %d", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return errors.New("feature vectors are empty")
	}
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}
	return nil
}

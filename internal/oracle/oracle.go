// Package oracle bundles a fitted model with everything a live component needs
// to act on it: the signal it was trained for, the feature transformer, and
// the bet sizing tables for both trade orientations.
package oracle

import (
	"fmt"
	"time"

	"aquitania/internal/dataset"
	"aquitania/internal/ml"
	"aquitania/internal/transform"

	"github.com/google/uuid"
)

// Direction tells the caller which way to trade a signal.
type Direction string

const (
	DirectionNormal  Direction = "normal"
	DirectionInverse Direction = "inverse"
	DirectionSkip    Direction = "skip"
)

// Decision is the oracle's answer for one signal occurrence.
type Decision struct {
	Probability float64    `json:"probability"`
	Direction   Direction  `json:"direction"`
	Bet         ml.BetSize `json:"bet"`
}

// Params are the parts an Oracle is built from.
type Params struct {
	Strategy    string
	Signal      dataset.Signal
	Manager     *ml.ModelManager
	Features    []string
	Transformer *transform.IndicatorTransformer
	Results     ml.Results
	Threshold   float64
}

// Oracle is the persisted inference bundle.
type Oracle struct {
	ID               string
	Strategy         string
	CreatedAt        time.Time
	Signal           dataset.Signal
	Features         []string
	BetSizing        ml.BetSizingTable
	InverseBetSizing ml.BetSizingTable
	Metrics          ml.ModelMetrics
	Importance       []ml.FeatureImportance
	Threshold        float64

	manager     *ml.ModelManager
	transformer *transform.IndicatorTransformer
}

func New(p Params) (*Oracle, error) {
	if p.Strategy == "" {
		return nil, fmt.Errorf("strategy name is required")
	}
	if p.Manager == nil || p.Transformer == nil {
		return nil, fmt.Errorf("model manager and transformer are required")
	}
	if len(p.Features) == 0 {
		return nil, fmt.Errorf("feature list is empty")
	}
	if p.Threshold < 0.5 || p.Threshold >= 1 {
		return nil, fmt.Errorf("threshold must be in [0.5, 1), got %v", p.Threshold)
	}

	return &Oracle{
		ID:               uuid.NewString(),
		Strategy:         p.Strategy,
		CreatedAt:        time.Now().UTC(),
		Signal:           p.Signal,
		Features:         append([]string(nil), p.Features...),
		BetSizing:        p.Results.BetSizing,
		InverseBetSizing: p.Results.InverseBetSizing,
		Metrics:          p.Results.Metrics,
		Importance:       p.Results.Importance,
		Threshold:        p.Threshold,
		manager:          p.Manager,
		transformer:      p.Transformer,
	}, nil
}

func (o *Oracle) ModelKind() string { return o.manager.Model().Kind() }

// Manager returns the wrapped model manager.
func (o *Oracle) Manager() *ml.ModelManager { return o.manager }

// Transformer returns the fitted feature transformer.
func (o *Oracle) Transformer() *transform.IndicatorTransformer { return o.transformer }

// Predict returns the win probability for named raw indicator values.
func (o *Oracle) Predict(values map[string]float64) (float64, error) {
	x, err := o.transformer.Vector(values)
	if err != nil {
		return 0, fmt.Errorf("failed to build feature vector: %w", err)
	}
	return o.manager.PredictProba(x)
}

// Decide scores a signal occurrence and picks a direction: normal when the
// probability reaches the threshold, inverse when it is at or below
// 1-threshold, skip otherwise. The bet comes from the matching table at ratio.
func (o *Oracle) Decide(currency string, values map[string]float64, ratio float64) (Decision, error) {
	p, err := o.Predict(values)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Probability: p, Direction: DirectionSkip}
	var table ml.BetSizingTable
	switch {
	case p >= o.Threshold:
		d.Direction, table = DirectionNormal, o.BetSizing
	case p <= 1-o.Threshold:
		d.Direction, table = DirectionInverse, o.InverseBetSizing
	default:
		return d, nil
	}

	bet, ok := table.Lookup(currency, ratio)
	if !ok {
		return Decision{}, fmt.Errorf("no bet sizing for %s at ratio %v", currency, ratio)
	}
	d.Bet = bet
	return d, nil
}

// Package transform turns the raw feature and label tables into the
// standardized dataset the models are trained on, and applies the same
// scaling to indicator values at inference time.
package transform

import (
	"errors"
	"fmt"
	"math"

	"aquitania/internal/dataset"

	"github.com/rs/zerolog/log"
)

// ErrNoRows is returned when no labelled feature row survives the join.
var ErrNoRows = errors.New("no rows after transform")

// State is the serializable form of a fitted transformer.
type State struct {
	Signal  string    `json:"signal"`
	Columns []string  `json:"columns"`
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
}

// IndicatorTransformer joins labels to indicator rows and z-scores the features.
type IndicatorTransformer struct {
	signal dataset.Signal
	state  State
	fitted bool
}

func NewIndicatorTransformer(signal dataset.Signal) *IndicatorTransformer {
	return &IndicatorTransformer{signal: signal, state: State{Signal: signal.Entry}}
}

// FromState restores a fitted transformer.
func FromState(s State) (*IndicatorTransformer, error) {
	if len(s.Columns) == 0 {
		return nil, fmt.Errorf("transformer state has no columns")
	}
	if len(s.Means) != len(s.Columns) || len(s.Stds) != len(s.Columns) {
		return nil, fmt.Errorf("transformer state has %d columns, %d means, %d stds",
			len(s.Columns), len(s.Means), len(s.Stds))
	}
	return &IndicatorTransformer{signal: dataset.Signal{Entry: s.Signal}, state: s, fitted: true}, nil
}

func (t *IndicatorTransformer) Signal() dataset.Signal { return t.signal }

// State returns a copy of the fitted parameters.
func (t *IndicatorTransformer) State() State {
	return State{
		Signal:  t.state.Signal,
		Columns: append([]string(nil), t.state.Columns...),
		Means:   append([]float64(nil), t.state.Means...),
		Stds:    append([]float64(nil), t.state.Stds...),
	}
}

func (t *IndicatorTransformer) Columns() []string { return t.state.Columns }

type rowKey struct {
	currency string
	ts       int64
}

// Transform joins every label to the feature row with the same currency and
// timestamp, drops unmatched or non-finite rows, fits the scaler on what is
// left, and returns the dataset in chronological order. Each feature row is
// used at most once, so the result never has more rows than features.
func (t *IndicatorTransformer) Transform(features dataset.FeatureTable, labels dataset.LabelTable) (dataset.Dataset, error) {
	if features.Len() == 0 {
		return dataset.Dataset{}, fmt.Errorf("empty feature table: %w", ErrNoRows)
	}
	if len(features.Columns) == 0 {
		return dataset.Dataset{}, fmt.Errorf("feature table has no columns")
	}

	index := make(map[rowKey]int, features.Len())
	for i, row := range features.Rows {
		k := rowKey{row.Currency, row.Timestamp.UnixNano()}
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}

	used := make(map[int]bool)
	var unmatched, nonFinite int

	ds := dataset.Dataset{FeatureNames: append([]string(nil), features.Columns...)}
	for _, label := range labels.Rows {
		i, ok := index[rowKey{label.Currency, label.Timestamp.UnixNano()}]
		if !ok {
			unmatched++
			continue
		}
		if used[i] {
			continue
		}
		used[i] = true

		row := features.Rows[i]
		if len(row.Values) != len(features.Columns) || !finite(row.Values) || !finite([]float64{label.Pips, label.MaxRatio, label.MinRatio}) {
			nonFinite++
			continue
		}

		y := 0
		if label.Pips > 0 {
			y = 1
		}
		ds.Samples = append(ds.Samples, dataset.Sample{
			Currency:  row.Currency,
			Timestamp: row.Timestamp,
			Features:  append([]float64(nil), row.Values...),
			Label:     y,
			Pips:      label.Pips,
			MaxRatio:  label.MaxRatio,
			MinRatio:  label.MinRatio,
		})
	}

	if ds.Len() == 0 {
		return dataset.Dataset{}, ErrNoRows
	}

	t.fit(ds)
	for i := range ds.Samples {
		ds.Samples[i].Features = t.scale(ds.Samples[i].Features)
	}
	ds.SortChronological()

	log.Debug().
		Str("signal", t.signal.Entry).
		Int("rows", ds.Len()).
		Int("unmatched_labels", unmatched).
		Int("non_finite", nonFinite).
		Msg("Dataset transformed")

	return ds, nil
}

func (t *IndicatorTransformer) fit(ds dataset.Dataset) {
	n := len(ds.FeatureNames)
	means := make([]float64, n)
	stds := make([]float64, n)

	for _, s := range ds.Samples {
		for j, v := range s.Features {
			means[j] += v
		}
	}
	count := float64(ds.Len())
	for j := range means {
		means[j] /= count
	}

	for _, s := range ds.Samples {
		for j, v := range s.Features {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / count)
		if stds[j] == 0 {
			stds[j] = 1 // constant column maps to zero
		}
	}

	t.state.Columns = append([]string(nil), ds.FeatureNames...)
	t.state.Means = means
	t.state.Stds = stds
	t.fitted = true
}

func (t *IndicatorTransformer) scale(raw []float64) []float64 {
	out := make([]float64, len(raw))
	for j, v := range raw {
		out[j] = (v - t.state.Means[j]) / t.state.Stds[j]
	}
	return out
}

// Standardize scales a raw vector given in column order.
func (t *IndicatorTransformer) Standardize(raw []float64) ([]float64, error) {
	if !t.fitted {
		return nil, fmt.Errorf("transformer is not fitted")
	}
	if len(raw) != len(t.state.Columns) {
		return nil, fmt.Errorf("expected %d values, got %d", len(t.state.Columns), len(raw))
	}
	if !finite(raw) {
		return nil, fmt.Errorf("non-finite indicator value")
	}
	return t.scale(raw), nil
}

// Vector builds a standardized feature vector from named indicator values.
// Extra names are ignored; a missing column is an error.
func (t *IndicatorTransformer) Vector(values map[string]float64) ([]float64, error) {
	if !t.fitted {
		return nil, fmt.Errorf("transformer is not fitted")
	}
	raw := make([]float64, len(t.state.Columns))
	for j, name := range t.state.Columns {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("missing feature %q", name)
		}
		raw[j] = v
	}
	return t.Standardize(raw)
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

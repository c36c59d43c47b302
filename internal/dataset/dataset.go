// Package dataset holds the tabular types that flow through the training pipeline:
// raw indicator rows, realized trade outcomes, and the joined, model-ready dataset.
package dataset

import (
	"sort"
	"time"
)

// Signal identifies a strategy entry condition. Indicator rows and label files
// are both keyed by its Entry name.
type Signal struct {
	Entry string `json:"entry" yaml:"entry"`
}

func (s Signal) String() string { return s.Entry }

// FeatureRow is one market observation at which the signal fired.
type FeatureRow struct {
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
	Values    []float64 `json:"values"`
}

// FeatureTable is the raw feature table: one row per observation, one value per column.
type FeatureTable struct {
	Columns []string
	Rows    []FeatureRow
}

// Len returns the number of rows.
func (t FeatureTable) Len() int { return len(t.Rows) }

// Shape returns (rows, columns).
func (t FeatureTable) Shape() (int, int) { return len(t.Rows), len(t.Columns) }

// LabelRow is the realized outcome of one trade opened on a signal occurrence.
// MaxRatio and MinRatio are the favorable and adverse excursions expressed in
// multiples of the initial risk; both are non-negative.
type LabelRow struct {
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
	Pips      float64   `json:"pips"`
	MaxRatio  float64   `json:"max_ratio"`
	MinRatio  float64   `json:"min_ratio"`
}

// LabelTable is an ordered set of trade outcomes.
type LabelTable struct {
	Rows []LabelRow
}

// Len returns the number of rows.
func (t LabelTable) Len() int { return len(t.Rows) }

// Concat joins tables in argument order without deduplication.
func Concat(tables ...LabelTable) LabelTable {
	n := 0
	for _, t := range tables {
		n += len(t.Rows)
	}
	out := LabelTable{Rows: make([]LabelRow, 0, n)}
	for _, t := range tables {
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// Sample is one model-ready row: standardized features plus the outcome it is
// trained against.
type Sample struct {
	Currency  string
	Timestamp time.Time
	Features  []float64
	Label     int
	Pips      float64
	MaxRatio  float64
	MinRatio  float64
}

// Dataset is the transformed dataset used for fitting and evaluation.
type Dataset struct {
	FeatureNames []string
	Samples      []Sample
}

// Len returns the number of samples.
func (d Dataset) Len() int { return len(d.Samples) }

// Shape returns (rows, features).
func (d Dataset) Shape() (int, int) { return len(d.Samples), len(d.FeatureNames) }

// XY returns the feature matrix and label vector. Slices are shared with the samples.
func (d Dataset) XY() ([][]float64, []int) {
	x := make([][]float64, len(d.Samples))
	y := make([]int, len(d.Samples))
	for i, s := range d.Samples {
		x[i] = s.Features
		y[i] = s.Label
	}
	return x, y
}

// Subset returns a dataset with the samples at the given indices, in index order.
func (d Dataset) Subset(idx []int) Dataset {
	out := Dataset{FeatureNames: d.FeatureNames, Samples: make([]Sample, len(idx))}
	for i, j := range idx {
		out.Samples[i] = d.Samples[j]
	}
	return out
}

// SortChronological orders samples by timestamp, ties broken by currency.
func (d *Dataset) SortChronological() {
	sort.SliceStable(d.Samples, func(i, j int) bool {
		a, b := d.Samples[i], d.Samples[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Currency < b.Currency
	})
}

package transform

import (
	"errors"
	"math"
	"testing"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func sampleTables() (dataset.FeatureTable, dataset.LabelTable) {
	features := dataset.FeatureTable{
		Columns: []string{"rsi", "atr"},
		Rows: []dataset.FeatureRow{
			{Currency: common.EURUSD, Timestamp: at(3), Values: []float64{70, 2}},
			{Currency: common.EURUSD, Timestamp: at(1), Values: []float64{30, 2}},
			{Currency: common.USDJPY, Timestamp: at(2), Values: []float64{50, 2}},
			{Currency: common.USDJPY, Timestamp: at(5), Values: []float64{math.NaN(), 2}},
			{Currency: common.USDJPY, Timestamp: at(6), Values: []float64{10, 2}}, // no label
		},
	}
	labels := dataset.LabelTable{Rows: []dataset.LabelRow{
		{Currency: common.EURUSD, Timestamp: at(1), Pips: 10, MaxRatio: 2},
		{Currency: common.EURUSD, Timestamp: at(3), Pips: -5, MinRatio: 1.5},
		{Currency: common.EURUSD, Timestamp: at(3), Pips: 7}, // duplicate, dropped
		{Currency: common.EURUSD, Timestamp: at(9), Pips: 1}, // no feature row
		{Currency: common.USDJPY, Timestamp: at(2), Pips: 0}, // loss label
		{Currency: common.USDJPY, Timestamp: at(5), Pips: 3}, // NaN feature
	}}
	return features, labels
}

func TestTransform(t *testing.T) {
	features, labels := sampleTables()
	tr := NewIndicatorTransformer(dataset.Signal{Entry: "keche_entry"})

	ds, err := tr.Transform(features, labels)
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len())
	assert.LessOrEqual(t, ds.Len(), features.Len())
	assert.Equal(t, []string{"rsi", "atr"}, ds.FeatureNames)

	// chronological
	assert.True(t, ds.Samples[0].Timestamp.Equal(at(1)))
	assert.True(t, ds.Samples[1].Timestamp.Equal(at(2)))
	assert.True(t, ds.Samples[2].Timestamp.Equal(at(3)))

	// Pips > 0 is a win; the first matching label wins a duplicate
	assert.Equal(t, 1, ds.Samples[0].Label)
	assert.Equal(t, 0, ds.Samples[1].Label)
	assert.Equal(t, 0, ds.Samples[2].Label)
	assert.Equal(t, 1.5, ds.Samples[2].MinRatio)

	// rsi values 30, 50, 70: mean 50, population std sqrt(800/3)
	std := math.Sqrt(800.0 / 3.0)
	assert.InDelta(t, -20/std, ds.Samples[0].Features[0], 1e-9)
	assert.InDelta(t, 0, ds.Samples[1].Features[0], 1e-9)
	// constant column scales to zero
	assert.InDelta(t, 0, ds.Samples[2].Features[1], 1e-9)
}

func TestTransform_Errors(t *testing.T) {
	tr := NewIndicatorTransformer(dataset.Signal{Entry: "keche_entry"})

	_, err := tr.Transform(dataset.FeatureTable{Columns: []string{"rsi"}}, dataset.LabelTable{})
	assert.True(t, errors.Is(err, ErrNoRows))

	features, _ := sampleTables()
	_, err = tr.Transform(features, dataset.LabelTable{Rows: []dataset.LabelRow{
		{Currency: common.GBPUSD, Timestamp: at(1), Pips: 1},
	}})
	assert.True(t, errors.Is(err, ErrNoRows))
}

func TestVector(t *testing.T) {
	features, labels := sampleTables()
	tr := NewIndicatorTransformer(dataset.Signal{Entry: "keche_entry"})

	_, err := tr.Vector(map[string]float64{"rsi": 50, "atr": 2})
	assert.Error(t, err, "unfitted transformer must refuse")

	_, err = tr.Transform(features, labels)
	require.NoError(t, err)

	v, err := tr.Vector(map[string]float64{"rsi": 50, "atr": 2, "unused": 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, v[0], 1e-9)
	assert.InDelta(t, 0, v[1], 1e-9)

	_, err = tr.Vector(map[string]float64{"rsi": 50})
	assert.Error(t, err)

	_, err = tr.Standardize([]float64{1})
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	features, labels := sampleTables()
	tr := NewIndicatorTransformer(dataset.Signal{Entry: "keche_entry"})
	_, err := tr.Transform(features, labels)
	require.NoError(t, err)

	restored, err := FromState(tr.State())
	require.NoError(t, err)
	assert.Equal(t, "keche_entry", restored.Signal().Entry)

	in := map[string]float64{"rsi": 61, "atr": 3}
	a, err := tr.Vector(in)
	require.NoError(t, err)
	b, err := restored.Vector(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = FromState(State{Columns: []string{"rsi"}})
	assert.Error(t, err)
}

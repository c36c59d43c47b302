package split

import (
	"errors"
	"math"
	"testing"
	"time"

	"aquitania/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDataset(n int) dataset.Dataset {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := dataset.Dataset{FeatureNames: []string{"x"}}
	for i := 0; i < n; i++ {
		ds.Samples = append(ds.Samples, dataset.Sample{
			Currency:  "EUR_USD",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Features:  []float64{float64(i)},
		})
	}
	return ds
}

func TestNewTrainTestSplit_Defaults(t *testing.T) {
	s, err := NewTrainTestSplit(Config{})
	require.NoError(t, err)
	assert.Equal(t, 0.15, s.Config().TestFraction)
	assert.False(t, s.Config().Shuffle)
}

func TestNewTrainTestSplit_Invalid(t *testing.T) {
	for _, f := range []float64{-0.1, 1, 1.5} {
		_, err := NewTrainTestSplit(Config{TestFraction: f})
		assert.Error(t, err, "fraction %v", f)
	}
}

func TestSplit_Sizes(t *testing.T) {
	s, err := NewTrainTestSplit(Config{TestFraction: 0.15})
	require.NoError(t, err)

	for _, n := range []int{7, 10, 20, 33, 100, 101, 1000} {
		train, test, err := s.Split(makeDataset(n))
		require.NoError(t, err, "n=%d", n)

		want := int(math.Round(0.15 * float64(n)))
		assert.Equal(t, want, test.Len(), "n=%d", n)
		assert.Equal(t, n-want, train.Len(), "n=%d", n)
	}
}

func TestSplit_Chronological(t *testing.T) {
	s, err := NewTrainTestSplit(Config{TestFraction: 0.2})
	require.NoError(t, err)

	train, test, err := s.Split(makeDataset(10))
	require.NoError(t, err)

	require.Equal(t, 2, test.Len())
	assert.Equal(t, 8.0, test.Samples[0].Features[0])
	assert.Equal(t, 9.0, test.Samples[1].Features[0])
	assert.True(t, train.Samples[train.Len()-1].Timestamp.Before(test.Samples[0].Timestamp))
}

func TestSplit_ShuffleDeterministic(t *testing.T) {
	cfg := Config{TestFraction: 0.3, Shuffle: true, Seed: 42}
	a, err := NewTrainTestSplit(cfg)
	require.NoError(t, err)
	b, err := NewTrainTestSplit(cfg)
	require.NoError(t, err)

	ds := makeDataset(50)
	_, testA, err := a.Split(ds)
	require.NoError(t, err)
	_, testB, err := b.Split(ds)
	require.NoError(t, err)

	assert.Equal(t, testA.Samples, testB.Samples)
	assert.Equal(t, 15, testA.Len())

	// Input order is kept inside the partition
	for i := 1; i < testA.Len(); i++ {
		assert.Less(t, testA.Samples[i-1].Features[0], testA.Samples[i].Features[0])
	}
}

func TestSplit_EmptyPartition(t *testing.T) {
	s, err := NewTrainTestSplit(Config{TestFraction: 0.15})
	require.NoError(t, err)

	for _, n := range []int{0, 1, 3} {
		_, _, err := s.Split(makeDataset(n))
		assert.True(t, errors.Is(err, ErrEmptyPartition), "n=%d", n)
	}
}

package ml

import (
	"math/rand"
	"time"

	"aquitania/internal/dataset"
)

// separableDataset has one informative column (x0 > 0 wins) and one noise
// column. Winners reach a favorable excursion of 2.5, losers an adverse one of 1.2.
func separableDataset(n int, seed int64) dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	currencies := []string{"EUR_USD", "USD_JPY"}

	ds := dataset.Dataset{FeatureNames: []string{"signal", "noise"}}
	for i := 0; i < n; i++ {
		x0 := rng.NormFloat64()
		s := dataset.Sample{
			Currency:  currencies[i%len(currencies)],
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Features:  []float64{x0, rng.NormFloat64()},
		}
		if x0 > 0 {
			s.Label, s.Pips, s.MaxRatio, s.MinRatio = 1, 15, 2.5, 0.3
		} else {
			s.Label, s.Pips, s.MaxRatio, s.MinRatio = 0, -10, 0.4, 1.2
		}
		ds.Samples = append(ds.Samples, s)
	}
	return ds
}

// tailSplitter holds out the last n rows.
type tailSplitter struct{ n int }

func (s tailSplitter) Split(ds dataset.Dataset) (dataset.Dataset, dataset.Dataset, error) {
	train := make([]int, 0, ds.Len()-s.n)
	test := make([]int, 0, s.n)
	for i := 0; i < ds.Len(); i++ {
		if i < ds.Len()-s.n {
			train = append(train, i)
		} else {
			test = append(test, i)
		}
	}
	return ds.Subset(train), ds.Subset(test), nil
}

// constModel always predicts p.
type constModel struct{ p float64 }

func (m constModel) Kind() string { return "const" }
func (m constModel) Fit([][]float64, []int) error { return nil }
func (m constModel) PredictProba([]float64) (float64, error) { return m.p, nil }

// Package split partitions a dataset into in-sample and out-of-sample parts.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"aquitania/internal/common"
	"aquitania/internal/dataset"
)

// ErrEmptyPartition is returned when a split would leave either side empty.
var ErrEmptyPartition = errors.New("split leaves an empty partition")

// Config replaces the free-form options map. TestFraction is the share of rows
// held out for evaluation.
type Config struct {
	TestFraction float64 `json:"test_fraction" yaml:"testFraction" default:"0.15" validate:"gt=0,lt=1"`
	Shuffle      bool    `json:"shuffle" yaml:"shuffle"`
	Seed         int64   `json:"seed" yaml:"seed"`
}

// TrainTestSplit splits datasets with a fixed configuration.
type TrainTestSplit struct {
	cfg Config
}

// NewTrainTestSplit applies defaults to cfg and validates it.
func NewTrainTestSplit(cfg Config) (*TrainTestSplit, error) {
	if err := common.ApplyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("invalid split config: %w", err)
	}
	return &TrainTestSplit{cfg: cfg}, nil
}

func (s *TrainTestSplit) Config() Config { return s.cfg }

// TestSize returns round(TestFraction * n).
func (s *TrainTestSplit) TestSize(n int) int {
	return int(math.Round(s.cfg.TestFraction * float64(n)))
}

// Split returns the in-sample and out-of-sample datasets. Without Shuffle the
// last TestSize rows of ds are held out, so a chronologically sorted dataset
// is tested on its most recent rows. With Shuffle a permutation seeded by
// Seed picks the held-out rows; each side keeps the input order.
func (s *TrainTestSplit) Split(ds dataset.Dataset) (train, test dataset.Dataset, err error) {
	n := ds.Len()
	nTest := s.TestSize(n)
	if nTest == 0 || nTest == n {
		return dataset.Dataset{}, dataset.Dataset{}, fmt.Errorf("%d rows with test fraction %.2f: %w",
			n, s.cfg.TestFraction, ErrEmptyPartition)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if s.cfg.Shuffle {
		rng := rand.New(rand.NewSource(s.cfg.Seed))
		idx = rng.Perm(n)
	}

	trainIdx := append([]int(nil), idx[:n-nTest]...)
	testIdx := append([]int(nil), idx[n-nTest:]...)
	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	return ds.Subset(trainIdx), ds.Subset(testIdx), nil
}

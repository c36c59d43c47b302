package brains

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"aquitania/internal/dataset"
	"aquitania/internal/liquidation"
	"aquitania/internal/storage"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	runs        int
	failures    int
	durations   int
	labelFiles  int
	rawRows     int
	datasetRows int
	trainRows   int
	testRows    int
	accuracy    float64
	artifacts   int
	bytes       int
}

func (m *MockMetrics) RunStarted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

func (m *MockMetrics) RunFailed(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) RunDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *MockMetrics) LabelFileLoaded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labelFiles++
}

func (m *MockMetrics) DatasetRows(_ string, raw, transformed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawRows, m.datasetRows = raw, transformed
}

func (m *MockMetrics) SplitRows(_ string, train, test int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainRows, m.testRows = train, test
}

func (m *MockMetrics) ModelEvaluated(_ string, accuracy, _, _, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accuracy = accuracy
}

func (m *MockMetrics) ArtifactWritten(_ string, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts++
	m.bytes = bytes
}

// MockRuns records training runs in memory
type MockRuns struct {
	runs []storage.TrainingRun
}

func (r *MockRuns) RecordTrainingRun(run storage.TrainingRun) error {
	r.runs = append(r.runs, run)
	return nil
}

var fixtureColumns = []string{"rsi", "atr_pct", "ema_gap"}

// writeFixtures stores rowsPerCurrency indicator rows per currency and a
// label file for each currency listed in withLabels. Every fifth row has no
// label, so the transform drops it.
func writeFixtures(t *testing.T, store *storage.Store, labels liquidation.Dir, signal string,
	currencies []string, withLabels []string, rowsPerCurrency int) {
	t.Helper()

	rng := rand.New(rand.NewSource(9))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	labelled := make(map[string]bool)
	for _, c := range withLabels {
		labelled[c] = true
	}

	for ci, currency := range currencies {
		table := dataset.FeatureTable{Columns: fixtureColumns}
		var outcomes dataset.LabelTable

		for i := 0; i < rowsPerCurrency; i++ {
			ts := base.Add(time.Duration(i*len(currencies)+ci) * time.Hour)
			rsi := 20 + 60*rng.Float64()
			table.Rows = append(table.Rows, dataset.FeatureRow{
				Currency:  currency,
				Timestamp: ts,
				Values:    []float64{rsi, 0.001 + 0.001*rng.Float64(), rng.NormFloat64()},
			})
			if i%5 == 4 {
				continue
			}
			row := dataset.LabelRow{Currency: currency, Timestamp: ts, Pips: -6, MaxRatio: 0.4, MinRatio: 1.3}
			if rsi > 50 {
				row.Pips, row.MaxRatio, row.MinRatio = 9, 2.4, 0.2
			}
			outcomes.Rows = append(outcomes.Rows, row)
		}

		if err := store.StoreFeatureBatch(signal, table); err != nil {
			t.Fatalf("Failed to store features: %v", err)
		}
		if labelled[currency] {
			if err := labels.Write(currency, signal, outcomes); err != nil {
				t.Fatalf("Failed to write labels: %v", err)
			}
		}
	}
}

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aquitania/internal/dataset"
	"aquitania/internal/ml"
	"aquitania/internal/oracle"
	"aquitania/internal/split"
	"aquitania/internal/storage"
	"aquitania/internal/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testOracle(t *testing.T) *oracle.Oracle {
	t.Helper()

	signal := dataset.Signal{Entry: "keche_entry"}
	rng := rand.New(rand.NewSource(11))
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	features := dataset.FeatureTable{Columns: []string{"rsi", "atr"}}
	var labels dataset.LabelTable
	for i := 0; i < 200; i++ {
		currency := []string{"EUR_USD", "GBP_USD"}[i%2]
		ts := base.Add(time.Duration(i) * time.Hour)
		rsi := 20 + 60*rng.Float64()
		features.Rows = append(features.Rows, dataset.FeatureRow{
			Currency: currency, Timestamp: ts, Values: []float64{rsi, rng.Float64()},
		})
		label := dataset.LabelRow{Currency: currency, Timestamp: ts, Pips: -4, MaxRatio: 0.5, MinRatio: 1.8}
		if rsi > 50 {
			label.Pips, label.MaxRatio, label.MinRatio = 7, 2.1, 0.2
		}
		labels.Rows = append(labels.Rows, label)
	}

	tr := transform.NewIndicatorTransformer(signal)
	ds, err := tr.Transform(features, labels)
	require.NoError(t, err)
	splitter, err := split.NewTrainTestSplit(split.Config{TestFraction: 0.2})
	require.NoError(t, err)
	mm, err := ml.NewModelManager(ml.NewDecisionTree(3, 5), splitter, ml.ManagerConfig{Ratios: []float64{1, 2}, Threshold: 0.6})
	require.NoError(t, err)
	results, err := mm.FitPredictEvaluate(ds)
	require.NoError(t, err)

	o, err := oracle.New(oracle.Params{
		Strategy:    "KecheStrategy",
		Signal:      signal,
		Manager:     mm,
		Features:    ds.FeatureNames,
		Transformer: tr,
		Results:     results,
		Threshold:   0.6,
	})
	require.NoError(t, err)
	return o
}

func TestNewReporter(t *testing.T) {
	o := testOracle(t)

	tests := []struct {
		name    string
		oracle  *oracle.Oracle
		formats []string
		wantErr bool
	}{
		{"all formats by default", o, nil, false},
		{"subset", o, []string{"txt", "csv"}, false},
		{"unknown format", o, []string{"html"}, true},
		{"nil oracle", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReporter(tt.oracle, nil, t.TempDir(), tt.formats)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "KecheStrategy", filepath.Base(r.OutputPath()))
		})
	}
}

func TestGenerateReport_AllFormats(t *testing.T) {
	o := testOracle(t)
	history := []storage.TrainingRun{
		{Strategy: "KecheStrategy", ModelKind: ml.KindDecisionTree, DatasetRows: 200, AUC: 0.91, StartedAt: time.Now().UTC()},
		{Strategy: "KecheStrategy", ModelKind: ml.KindDecisionTree, Error: "label file not found", StartedAt: time.Now().UTC()},
	}
	dir := t.TempDir()

	r, err := NewReporter(o, history, dir, nil)
	require.NoError(t, err)
	paths, err := r.GenerateReport()
	require.NoError(t, err)
	require.Len(t, paths, 5)

	for _, name := range []string{SummaryFile, BetSizingFile, JSONFile, XLSXFile, PDFFile} {
		info, err := os.Stat(filepath.Join(dir, "KecheStrategy", name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	summary, err := os.ReadFile(filepath.Join(dir, "KecheStrategy", SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Strategy: KecheStrategy")
	assert.Contains(t, string(summary), o.ID)
	assert.Contains(t, string(summary), "BET SIZING (inverse)")
	assert.Contains(t, string(summary), "failed: label file not found")

	pdf, err := os.ReadFile(filepath.Join(dir, "KecheStrategy", PDFFile))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestGenerateReport_BetSizingCSV(t *testing.T) {
	o := testOracle(t)
	dir := t.TempDir()

	r, err := NewReporter(o, nil, dir, []string{"csv"})
	require.NoError(t, err)
	_, err = r.GenerateReport()
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "KecheStrategy", BetSizingFile))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, betSizingHeader, records[0])
	// two directions, three rows (two currencies and ALL), two ratios
	assert.Len(t, records[1:], 2*3*2)
	assert.Equal(t, "normal", records[1][0])
	assert.Equal(t, "EUR_USD", records[1][1])
	assert.Equal(t, "inverse", records[len(records)-1][0])
	assert.Equal(t, ml.AllCurrencies, records[len(records)-1][1])

	_, err = os.Stat(filepath.Join(dir, "KecheStrategy", SummaryFile))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateReport_JSON(t *testing.T) {
	o := testOracle(t)
	dir := t.TempDir()

	r, err := NewReporter(o, nil, dir, []string{"json"})
	require.NoError(t, err)
	_, err = r.GenerateReport()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "KecheStrategy", JSONFile))
	require.NoError(t, err)

	var got jsonReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, o.ID, got.ArtifactID)
	assert.Equal(t, "keche_entry", got.Signal)
	assert.Equal(t, ml.KindDecisionTree, got.ModelKind)
	assert.Equal(t, o.Metrics.TestSamples, got.Metrics.TestSamples)
	assert.Contains(t, got.BetSizing, ml.AllCurrencies)
	assert.Empty(t, got.History)
}

func TestGenerateReport_XLSX(t *testing.T) {
	o := testOracle(t)
	dir := t.TempDir()

	r, err := NewReporter(o, nil, dir, []string{"xlsx"})
	require.NoError(t, err)
	_, err = r.GenerateReport()
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, "KecheStrategy", XLSXFile))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "bet_sizing", "importance"}, f.GetSheetList())

	v, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "KecheStrategy", v)

	rows, err := f.GetRows("bet_sizing")
	require.NoError(t, err)
	assert.Len(t, rows, 1+2*3*2)

	rows, err = f.GetRows("importance")
	require.NoError(t, err)
	assert.Len(t, rows, 1+len(o.Importance))
	assert.True(t, strings.EqualFold(rows[0][0], "feature"))
}

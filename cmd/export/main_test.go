package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"aquitania/internal/dataset"
	"aquitania/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	table := dataset.FeatureTable{Columns: []string{"rsi", "atr_pct"}}
	for i := 0; i < 6; i++ {
		table.Rows = append(table.Rows, dataset.FeatureRow{
			Currency:  []string{"EUR_USD", "USD_JPY"}[i%2],
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Values:    []float64{40 + float64(i), 0.001},
		})
	}
	require.NoError(t, store.StoreFeatureBatch("keche_entry", table))
	return store
}

func decodeRows(t *testing.T, data []byte) []Row {
	t.Helper()
	var rows []Row
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var r Row
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		rows = append(rows, r)
	}
	return rows
}

func TestExport(t *testing.T) {
	store := setupStore(t)

	tests := []struct {
		name     string
		currency string
		cutoff   time.Time
		want     int
	}{
		{"all rows", "", time.Time{}, 6},
		{"one currency", "USD_JPY", time.Time{}, 3},
		{"cutoff", "", time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), 3},
		{"unknown currency", "GBP_USD", time.Time{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			counts, err := export(store, &buf, "keche_entry", tt.currency, tt.cutoff)
			require.NoError(t, err)

			rows := decodeRows(t, buf.Bytes())
			assert.Len(t, rows, tt.want)
			total := 0
			for _, n := range counts {
				total += n
			}
			assert.Equal(t, tt.want, total)
			for _, r := range rows {
				assert.Contains(t, r.Values, "rsi")
				assert.Contains(t, r.Values, "atr_pct")
				if tt.currency != "" {
					assert.Equal(t, tt.currency, r.Currency)
				}
			}
		})
	}
}

func TestExport_UnknownSignal(t *testing.T) {
	store := setupStore(t)

	var buf bytes.Buffer
	_, err := export(store, &buf, "missing", "", time.Time{})
	assert.True(t, errors.Is(err, storage.ErrNoFeatures))
}

package liquidation

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_Path(t *testing.T) {
	d := NewDir("data/liquidation")
	assert.Equal(t, filepath.Join("data/liquidation", "EUR_USD_keche_entry_CONSOLIDATE"), d.Path(common.EURUSD, "keche_entry"))
}

func TestDir_WriteLoad(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "liquidation"))
	base := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

	in := dataset.LabelTable{Rows: []dataset.LabelRow{
		{Timestamp: base, Pips: 12.5, MaxRatio: 2.1, MinRatio: 0.4},
		{Timestamp: base.Add(time.Hour), Pips: -8, MaxRatio: 0.3, MinRatio: 1.2},
	}}
	require.NoError(t, d.Write(common.GBPUSD, "keche_entry", in))

	out, err := d.Load(common.GBPUSD, "keche_entry")
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	for i, row := range out.Rows {
		assert.Equal(t, common.GBPUSD, row.Currency)
		assert.True(t, row.Timestamp.Equal(in.Rows[i].Timestamp))
		assert.Equal(t, in.Rows[i].Pips, row.Pips)
		assert.Equal(t, in.Rows[i].MaxRatio, row.MaxRatio)
		assert.Equal(t, in.Rows[i].MinRatio, row.MinRatio)
	}
}

func TestDir_LoadMissing(t *testing.T) {
	d := NewDir(t.TempDir())

	_, err := d.Load(common.EURUSD, "keche_entry")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDir_LoadExtraColumns(t *testing.T) {
	dir := t.TempDir()
	d := NewDir(dir)

	content := "trade_id,timestamp,pips,max_ratio,min_ratio,exit_reason\n" +
		"1,2024-02-01T09:30:00Z,4.2,1.5,0.2,tp\n"
	require.NoError(t, os.WriteFile(d.Path(common.USDJPY, "keche_entry"), []byte(content), 0o644))

	out, err := d.Load(common.USDJPY, "keche_entry")
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 4.2, out.Rows[0].Pips)
}

func TestDir_LoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"missing column", "timestamp,pips,max_ratio\n2024-02-01T09:30:00Z,1,1\n"},
		{"bad timestamp", "timestamp,pips,max_ratio,min_ratio\nyesterday,1,1,1\n"},
		{"bad number", "timestamp,pips,max_ratio,min_ratio\n2024-02-01T09:30:00Z,abc,1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDir(t.TempDir())
			require.NoError(t, os.WriteFile(d.Path(common.EURUSD, "keche_entry"), []byte(tt.content), 0o644))

			_, err := d.Load(common.EURUSD, "keche_entry")
			assert.Error(t, err)
			assert.False(t, errors.Is(err, ErrNotFound))
		})
	}
}

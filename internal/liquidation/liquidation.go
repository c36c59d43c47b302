// Package liquidation reads and writes the consolidated trade-outcome files
// produced for every currency and signal. Each file is a CSV table with a
// header row; the currency is implied by the file name.
package liquidation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/dataset"

	"github.com/rs/zerolog/log"
)

// ErrNotFound reports a missing label file. It matches fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("label file not found: %w", fs.ErrNotExist)

// Header is the column layout written by Write. Load requires these columns and
// ignores any others.
var Header = []string{"timestamp", "pips", "max_ratio", "min_ratio"}

// Dir is a directory of consolidated label files.
type Dir struct {
	path string
}

// NewDir returns a label directory rooted at path.
func NewDir(path string) Dir {
	return Dir{path: path}
}

// Root returns the directory path.
func (d Dir) Root() string { return d.path }

// Path returns {dir}/{currency}_{signal}_CONSOLIDATE.
func (d Dir) Path(currency, signal string) string {
	return filepath.Join(d.path, fmt.Sprintf("%s_%s_%s", currency, signal, common.LabelFileSuffix))
}

// Load reads the label table for one currency and signal.
func (d Dir) Load(currency, signal string) (dataset.LabelTable, error) {
	path := d.Path(currency, signal)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dataset.LabelTable{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return dataset.LabelTable{}, fmt.Errorf("failed to open label file: %w", err)
	}
	defer file.Close()

	table, err := decode(file, currency)
	if err != nil {
		return dataset.LabelTable{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	log.Debug().
		Str("file", path).
		Int("rows", table.Len()).
		Msg("Label file loaded")

	return table, nil
}

func decode(r io.Reader, currency string) (dataset.LabelTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return dataset.LabelTable{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[col] = i
	}
	for _, col := range Header {
		if _, ok := indices[col]; !ok {
			return dataset.LabelTable{}, fmt.Errorf("missing column %q", col)
		}
	}

	var table dataset.LabelTable
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.LabelTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < len(header) {
			return dataset.LabelTable{}, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(record))
		}

		ts, err := time.Parse(time.RFC3339Nano, record[indices["timestamp"]])
		if err != nil {
			return dataset.LabelTable{}, fmt.Errorf("line %d: invalid timestamp: %w", line, err)
		}

		row := dataset.LabelRow{Currency: currency, Timestamp: ts}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"pips", &row.Pips},
			{"max_ratio", &row.MaxRatio},
			{"min_ratio", &row.MinRatio},
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(record[indices[f.name]], 64)
			if err != nil {
				return dataset.LabelTable{}, fmt.Errorf("line %d: invalid %s: %w", line, f.name, err)
			}
			*f.dst = v
		}

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// Write stores a label table for one currency and signal, replacing any
// existing file. Rows of other currencies are written as-is; the file name
// decides the currency on load.
func (d Dir) Write(currency, signal string, table dataset.LabelTable) error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create label directory: %w", err)
	}

	path := d.Path(currency, signal)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create label file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, row := range table.Rows {
		record := []string{
			row.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(row.Pips, 'f', -1, 64),
			strconv.FormatFloat(row.MaxRatio, 'f', -1, 64),
			strconv.FormatFloat(row.MinRatio, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write label file: %w", err)
	}

	return file.Close()
}

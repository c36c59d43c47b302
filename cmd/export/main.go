// Command export writes the stored indicator rows of a signal as newline
// delimited JSON, one object per row with named columns.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Row is one exported indicator row.
type Row struct {
	Timestamp int64              `json:"timestamp"`
	Currency  string             `json:"currency"`
	Values    map[string]float64 `json:"values"`
}

func main() {
	var (
		dataPath   = flag.String("data", common.DefaultDataPath, "Data directory path")
		outputPath = flag.String("output", "-", "Output file, - for stdout")
		signal     = flag.String("signal", common.DefaultSignal, "Signal to export")
		currency   = flag.String("currency", "", "Currency to export (empty for all)")
		days       = flag.Int("days", 0, "Number of days to export (0 for all)")
	)
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	var out io.Writer = os.Stdout
	if *outputPath != "-" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	var cutoff time.Time
	if *days > 0 {
		cutoff = time.Now().AddDate(0, 0, -*days)
	}

	counts, err := export(store, out, *signal, *currency, cutoff)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	total := 0
	for c, n := range counts {
		log.Info().Str("currency", c).Int("rows", n).Msg("Exported")
		total += n
	}
	if total == 0 {
		log.Warn().Msg("No records found matching criteria")
	}
}

// export streams the rows of signal that match currency (all when empty) and
// are not older than cutoff. It returns the number of rows written per
// currency.
func export(store *storage.Store, w io.Writer, signal, currency string, cutoff time.Time) (map[string]int, error) {
	columns, err := store.FeatureColumns(signal)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(w)
	counts := make(map[string]int)
	err = store.ForEachFeature(signal, func(r storage.FeatureRecord) error {
		if currency != "" && r.Currency != currency {
			return nil
		}
		if !cutoff.IsZero() && r.Timestamp.Before(cutoff) {
			return nil
		}
		if len(r.Values) != len(columns) {
			return fmt.Errorf("row %s/%s has %d values for %d columns", r.Currency, r.Timestamp, len(r.Values), len(columns))
		}

		row := Row{Timestamp: r.Timestamp.Unix(), Currency: r.Currency, Values: make(map[string]float64, len(columns))}
		for i, v := range r.Values {
			row.Values[columns[i]] = v
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write JSON record: %w", err)
		}
		counts[r.Currency]++
		return nil
	})
	return counts, err
}

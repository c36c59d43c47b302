// Command inspect prints a saved strategy artifact, its training history,
// and optionally the decision it makes for a set of indicator values.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/oracle"
	"aquitania/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		modelDir = flag.String("models", common.DefaultModelDir, "Model directory")
		strategy = flag.String("strategy", common.DefaultStrategy, "Strategy name")
		dataPath = flag.String("data", "", "Data directory, prints the run history when set")
		values   = flag.String("values", "", "Indicator values to score, e.g. rsi=62,atr_pct=0.0012")
		currency = flag.String("currency", common.EURUSD, "Currency for bet sizing lookups")
		ratio    = flag.Float64("ratio", 2, "Reward/risk ratio for bet sizing lookups")
		watch    = flag.Duration("watch", 0, "Re-check the artifact at this interval and report retraining")
	)
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	path := filepath.Join(*modelDir, *strategy+common.ArtifactExt)
	cache, err := oracle.NewCache(4)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create cache")
	}

	o, err := cache.Get(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load artifact")
	}
	printOracle(os.Stdout, o)

	if *values != "" {
		parsed, err := parseValues(*values)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid values")
		}
		d, err := o.Decide(*currency, parsed, *ratio)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to score values")
		}
		fmt.Printf("\nDecision: %s (p=%.4f, win rate %.2f%%, kelly %.4f over %d trades)\n",
			d.Direction, d.Probability, d.Bet.WinRate*100, d.Bet.Kelly, d.Bet.Samples)
	}

	if *dataPath != "" {
		store, err := storage.New(*dataPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open storage")
		}
		runs, err := store.ListTrainingRuns(*strategy)
		store.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list training runs")
		}
		printRuns(os.Stdout, runs)
	}

	if *watch <= 0 {
		return
	}
	current := o.ID
	for range time.Tick(*watch) {
		o, err := cache.Get(path)
		if err != nil {
			log.Warn().Err(err).Msg("Artifact unavailable")
			continue
		}
		if o.ID != current {
			current = o.ID
			log.Info().Str("id", o.ID).Time("created", o.CreatedAt).Float64("auc", o.Metrics.AUCScore).Msg("Strategy retrained")
		}
	}
}

func printOracle(w io.Writer, o *oracle.Oracle) {
	m := o.Metrics
	fmt.Fprintf(w, "=== %s ===\n", o.Strategy)
	fmt.Fprintf(w, "ID: %s\n", o.ID)
	fmt.Fprintf(w, "Created: %s\n", o.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Signal: %s\n", o.Signal)
	fmt.Fprintf(w, "Model: %s\n", o.ModelKind())
	fmt.Fprintf(w, "Features: %s\n", strings.Join(o.Features, ", "))
	fmt.Fprintf(w, "Threshold: %.2f\n", o.Threshold)
	fmt.Fprintf(w, "Rows: %d train, %d test\n", m.TrainingSamples, m.TestSamples)
	fmt.Fprintf(w, "Accuracy %.4f  Precision %.4f  Recall %.4f  AUC %.4f\n",
		m.Accuracy, m.Precision, m.Recall, m.AUCScore)

	for _, currency := range o.BetSizing.Currencies() {
		fmt.Fprintf(w, "%-8s", currency)
		for _, b := range o.BetSizing[currency] {
			fmt.Fprintf(w, "  %.1f:%.3f", b.Ratio, b.Kelly)
		}
		fmt.Fprintln(w)
	}
}

func printRuns(w io.Writer, runs []storage.TrainingRun) {
	fmt.Fprintf(w, "\n%d training runs\n", len(runs))
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		fmt.Fprintf(w, "%s  %-20s rows=%-6d auc=%.4f  %s  %s\n",
			r.StartedAt.Format(time.RFC3339), r.ModelKind, r.DatasetRows, r.AUC, r.Duration.Round(time.Millisecond), status)
	}
}

// parseValues parses name=value pairs separated by commas.
func parseValues(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

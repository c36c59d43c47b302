// Command sampledata fills a feature store and a liquidation directory with
// synthetic hourly bars for trying out the trainer.
package main

import (
	"flag"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/dataset"
	"aquitania/internal/features"
	"aquitania/internal/liquidation"
	"aquitania/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Simulation parameters
const (
	volatility = 0.002
	horizon    = 24
	signalGap  = 6
)

func main() {
	var (
		dataPath       = flag.String("data", common.DefaultDataPath, "Data directory path")
		liquidationDir = flag.String("liquidation", common.DefaultLiquidationDir, "Label file directory")
		currencies     = flag.String("currencies", strings.Join([]string{common.EURUSD, common.GBPUSD, common.USDJPY}, ","), "Comma-separated currencies")
		signal         = flag.String("signal", common.DefaultSignal, "Signal name to store the rows under")
		days           = flag.Int("days", 120, "Number of days of hourly bars to generate")
		seed           = flag.Int64("seed", 1, "Random seed")
	)
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage")
	}
	defer store.Close()
	labels := liquidation.NewDir(*liquidationDir)

	rng := rand.New(rand.NewSource(*seed))
	start := time.Now().UTC().Truncate(time.Hour).AddDate(0, 0, -*days)

	for _, currency := range strings.Split(*currencies, ",") {
		currency = strings.TrimSpace(currency)
		if currency == "" {
			continue
		}
		bars := simulateBars(rng, startPrice(currency), start, *days*24)
		rows, outcomes := buildSignals(currency, bars, pipSize(currency))

		if err := store.StoreFeatureBatch(*signal, rows); err != nil {
			log.Fatal().Err(err).Str("currency", currency).Msg("Failed to store features")
		}
		if err := labels.Write(currency, *signal, outcomes); err != nil {
			log.Fatal().Err(err).Str("currency", currency).Msg("Failed to write labels")
		}

		log.Info().
			Str("currency", currency).
			Int("bars", len(bars)).
			Int("signals", rows.Len()).
			Str("labels", labels.Path(currency, *signal)).
			Msg("Generated sample data")
	}
}

// simulateBars produces n hourly bars from a geometric random walk.
func simulateBars(rng *rand.Rand, price float64, start time.Time, n int) []features.Bar {
	bars := make([]features.Bar, 0, n)
	for i := 0; i < n; i++ {
		open := price
		closePrice := open * math.Exp(volatility*rng.NormFloat64())
		high := math.Max(open, closePrice) * (1 + volatility*math.Abs(rng.NormFloat64())/2)
		low := math.Min(open, closePrice) * (1 - volatility*math.Abs(rng.NormFloat64())/2)
		bars = append(bars, features.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: 100 + 900*rng.Float64(),
		})
		price = closePrice
	}
	return bars
}

// buildSignals fires the entry signal every signalGap bars once the indicators
// are warm, and labels each entry by what price did over the next horizon
// bars. Excursions are measured in units of the entry bar's ATR.
func buildSignals(currency string, bars []features.Bar, pip float64) (dataset.FeatureTable, dataset.LabelTable) {
	table := dataset.FeatureTable{Columns: features.Columns}
	var outcomes dataset.LabelTable

	set := features.NewSet()
	for i, b := range bars {
		values, ok := set.Update(b)
		if !ok || i%signalGap != 0 || i+horizon >= len(bars) {
			continue
		}

		risk := values[1] * b.Close
		if risk <= 0 {
			continue
		}
		up, down := 0.0, 0.0
		for _, f := range bars[i+1 : i+1+horizon] {
			up = math.Max(up, f.High-b.Close)
			down = math.Max(down, b.Close-f.Low)
		}

		table.Rows = append(table.Rows, dataset.FeatureRow{Currency: currency, Timestamp: b.Time, Values: values})
		outcomes.Rows = append(outcomes.Rows, dataset.LabelRow{
			Currency:  currency,
			Timestamp: b.Time,
			Pips:      (bars[i+horizon].Close - b.Close) / pip,
			MaxRatio:  up / risk,
			MinRatio:  down / risk,
		})
	}
	return table, outcomes
}

func startPrice(currency string) float64 {
	if strings.HasSuffix(currency, "JPY") {
		return 150
	}
	return 1.1
}

func pipSize(currency string) float64 {
	if strings.HasSuffix(currency, "JPY") {
		return 0.01
	}
	return 0.0001
}
